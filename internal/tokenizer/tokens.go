// Package tokenizer classifies header field values using Shape's tokenizer framework.
package tokenizer

// Token type constants for header field values.
// A value is a sequence of text runs separated by line structure; the
// injection-safety grammar is expressed over these kinds.
const (
	// Content tokens
	TokenText = "Text" // visible characters, SP, HTAB and obs-text

	// Line structure
	TokenFold      = "Fold"      // CRLF followed by SP or HTAB (obsolete line folding)
	TokenLineBreak = "LineBreak" // bare CR, bare LF, or CRLF not followed by SP/HTAB

	// Rejected content
	TokenControl = "Control" // CTL other than HTAB, and DEL
)
