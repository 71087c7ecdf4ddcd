package tokenizer

import (
	"strings"

	"github.com/shapestone/shape-core/pkg/tokenizer"
)

// NewTokenizer creates a tokenizer for header field values.
// Matchers are tried in order:
// 1. Line structure (folds and line breaks)
// 2. Control characters
// 3. Text runs
//
// Whitespace is significant inside header values, so the default whitespace
// skipper is not used.
func NewTokenizer() tokenizer.Tokenizer {
	return tokenizer.NewTokenizerWithoutWhitespace(
		LineMatcher(),
		ControlMatcher(),
		TextMatcher(),
	)
}

// NewTokenizerWithStream creates a header value tokenizer using a pre-configured stream.
func NewTokenizerWithStream(stream tokenizer.Stream) tokenizer.Tokenizer {
	tok := NewTokenizer()
	tok.InitializeFromStream(stream)
	return tok
}

// LineMatcher matches CR and LF sequences. Once it has consumed a character it
// always emits a token: a Fold for CRLF followed by SP or HTAB (the whitespace
// is part of the token), a LineBreak for anything else.
func LineMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		r, ok := stream.PeekChar()
		if !ok {
			return nil
		}

		if r == '\n' {
			stream.NextChar()
			return tokenizer.NewToken(TokenLineBreak, []rune{'\n'})
		}
		if r != '\r' {
			return nil
		}

		stream.NextChar()
		r2, ok := stream.PeekChar()
		if !ok || r2 != '\n' {
			return tokenizer.NewToken(TokenLineBreak, []rune{'\r'})
		}
		stream.NextChar()

		r3, ok := stream.PeekChar()
		if ok && (r3 == ' ' || r3 == '\t') {
			stream.NextChar()
			return tokenizer.NewToken(TokenFold, []rune{'\r', '\n', r3})
		}
		return tokenizer.NewToken(TokenLineBreak, []rune{'\r', '\n'})
	}
}

// ControlMatcher matches a single control character (other than HTAB, CR, LF) or DEL.
func ControlMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		r, ok := stream.PeekChar()
		if !ok || !isControl(r) {
			return nil
		}
		stream.NextChar()
		return tokenizer.NewToken(TokenControl, []rune{r})
	}
}

// TextMatcher matches a run of characters up to the next CR, LF or control character.
func TextMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune

		for {
			r, ok := stream.PeekChar()
			if !ok {
				break
			}
			if r == '\r' || r == '\n' || isControl(r) {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}

		if len(value) == 0 {
			return nil
		}

		return tokenizer.NewToken(TokenText, value)
	}
}

func isControl(r rune) bool {
	if r == '\t' || r == '\r' || r == '\n' {
		return false
	}
	return r < 0x20 || r == 0x7f
}

// IsSafeValue reports whether value satisfies the header injection-safety
// grammar: only text runs and folded continuations. The raw byte 0xFF is
// rejected up front since it cannot survive rune decoding unambiguously.
func IsSafeValue(value string) bool {
	if strings.IndexByte(value, 0xff) >= 0 {
		return false
	}

	tok := NewTokenizer()
	tok.Initialize(value)

	tokens, eos := tok.Tokenize()
	if !eos {
		return false
	}
	for _, t := range tokens {
		switch t.Kind() {
		case TokenText, TokenFold:
		default:
			return false
		}
	}
	return true
}
