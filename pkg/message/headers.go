package message

import (
	"sort"
	"strings"

	"github.com/shapestone/shape-message/internal/grammar"
	"github.com/shapestone/shape-message/internal/tokenizer"
)

// Field is one header name with its ordered values.
type Field struct {
	Name   string
	Values []string
}

// HeaderBag is an immutable, ordered collection of header fields. Names are
// compared case-insensitively; the case of the first insertion is kept for
// enumeration. The zero value is an empty bag.
type HeaderBag struct {
	fields []Field
	index  map[string]int // lower-case name -> position in fields
}

// NewHeaderBag builds a bag from a raw map of name to string, []string or
// []any of strings. Names are enumerated in sorted order. Entries that carry no
// usable data (empty names, empty values, values of other types) are dropped.
// A name outside the token grammar or a value failing the injection-safety
// grammar is an error matching ErrInvalidHeader.
func NewHeaderBag(raw map[string]any) (HeaderBag, error) {
	var bag HeaderBag
	for _, name := range sortedNames(raw) {
		values, ok := coerceValues(raw[name])
		if name == "" || !ok || len(values) == 0 {
			dropped(name, "no usable value")
			continue
		}
		if err := validateField("new header bag", name, values); err != nil {
			return HeaderBag{}, err
		}
		bag = bag.add(name, values)
	}
	return bag, nil
}

// ImportHeaders builds a bag from untrusted aggregate input. Every entry that
// would make NewHeaderBag fail, including injection vectors, is dropped instead.
// Invalid values are dropped individually; the remaining values of the same
// name are kept.
func ImportHeaders(raw map[string]any) HeaderBag {
	fields := make([]Field, 0, len(raw))
	for _, name := range sortedNames(raw) {
		values, ok := coerceValues(raw[name])
		if !ok {
			dropped(name, "unsupported value type")
			continue
		}
		fields = append(fields, Field{Name: name, Values: values})
	}
	return importFields(fields)
}

func importFields(fields []Field) HeaderBag {
	var bag HeaderBag
	for _, f := range fields {
		if !grammar.IsToken(f.Name) {
			dropped(f.Name, "invalid name")
			continue
		}
		values := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			if !isValidValue(v) {
				dropped(f.Name, "invalid value")
				continue
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}
		bag = bag.add(f.Name, values)
	}
	return bag
}

// NewHeaderBagFromFields builds a bag in the given field order. Repeated names
// are merged. Any invalid name or value is an error.
func NewHeaderBagFromFields(fields []Field) (HeaderBag, error) {
	var bag HeaderBag
	for _, f := range fields {
		if err := validateField("new header bag", f.Name, f.Values); err != nil {
			return HeaderBag{}, err
		}
		bag = bag.add(f.Name, f.Values)
	}
	return bag, nil
}

// Len returns the number of distinct header names.
func (h HeaderBag) Len() int { return len(h.fields) }

// Has reports whether a header with the given name exists.
func (h HeaderBag) Has(name string) bool {
	_, ok := h.index[grammar.LowerASCII(name)]
	return ok
}

// Get returns a copy of the values of the named header, or nil.
func (h HeaderBag) Get(name string) []string {
	i, ok := h.index[grammar.LowerASCII(name)]
	if !ok {
		return nil
	}
	return append([]string(nil), h.fields[i].Values...)
}

// Line returns the values of the named header joined with ",", or "".
func (h HeaderBag) Line(name string) string {
	i, ok := h.index[grammar.LowerASCII(name)]
	if !ok {
		return ""
	}
	return strings.Join(h.fields[i].Values, ",")
}

// Names returns the header names in enumeration order.
func (h HeaderBag) Names() []string {
	names := make([]string, len(h.fields))
	for i, f := range h.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a deep copy of the fields in enumeration order.
func (h HeaderBag) Fields() []Field {
	out := make([]Field, len(h.fields))
	for i, f := range h.fields {
		out[i] = Field{Name: f.Name, Values: append([]string(nil), f.Values...)}
	}
	return out
}

// Map returns the headers keyed by their stored name.
func (h HeaderBag) Map() map[string][]string {
	m := make(map[string][]string, len(h.fields))
	for _, f := range h.fields {
		m[f.Name] = append([]string(nil), f.Values...)
	}
	return m
}

// With returns a bag in which the named header holds exactly values. An
// existing header of the same name is removed first, so the new name case wins
// and the field moves to the end.
func (h HeaderBag) With(name string, values ...string) (HeaderBag, error) {
	if err := validateField("with header", name, values); err != nil {
		return h, err
	}
	return h.Without(name).add(name, values), nil
}

// WithAdded returns a bag with values appended to the named header. The stored
// case and position of an existing name are kept.
func (h HeaderBag) WithAdded(name string, values ...string) (HeaderBag, error) {
	if err := validateField("with added header", name, values); err != nil {
		return h, err
	}
	return h.add(name, values), nil
}

// Without returns a bag without the named header. Removing an absent header is
// not an error.
func (h HeaderBag) Without(name string) HeaderBag {
	i, ok := h.index[grammar.LowerASCII(name)]
	if !ok {
		return h
	}
	fields := make([]Field, 0, len(h.fields)-1)
	fields = append(fields, h.fields[:i]...)
	fields = append(fields, h.fields[i+1:]...)
	return newBag(fields)
}

// prepend returns a bag with a field placed first. The caller guarantees the
// name is absent and the value valid.
func (h HeaderBag) prepend(name, value string) HeaderBag {
	fields := make([]Field, 0, len(h.fields)+1)
	fields = append(fields, Field{Name: name, Values: []string{value}})
	fields = append(fields, h.fields...)
	return newBag(fields)
}

// add appends values under name without validation. Stored Values slices are
// never modified in place, so bags may share them.
func (h HeaderBag) add(name string, values []string) HeaderBag {
	key := grammar.LowerASCII(name)
	fields := make([]Field, len(h.fields), len(h.fields)+1)
	copy(fields, h.fields)

	if i, ok := h.index[key]; ok {
		merged := make([]string, 0, len(fields[i].Values)+len(values))
		merged = append(merged, fields[i].Values...)
		merged = append(merged, values...)
		fields[i] = Field{Name: fields[i].Name, Values: merged}
		return HeaderBag{fields: fields, index: h.index}
	}

	fields = append(fields, Field{Name: name, Values: append([]string(nil), values...)})
	index := make(map[string]int, len(fields))
	for k, v := range h.index {
		index[k] = v
	}
	index[key] = len(fields) - 1
	return HeaderBag{fields: fields, index: index}
}

func newBag(fields []Field) HeaderBag {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[grammar.LowerASCII(f.Name)] = i
	}
	return HeaderBag{fields: fields, index: index}
}

func validateField(op, name string, values []string) error {
	if !grammar.IsToken(name) {
		return newError(op, ErrInvalidHeader, "invalid header name %q", name)
	}
	if len(values) == 0 {
		return newError(op, ErrInvalidHeader, "header %q has no values", name)
	}
	for _, v := range values {
		if !isValidValue(v) {
			return newError(op, ErrInvalidHeader, "invalid value for header %q", name)
		}
	}
	return nil
}

func isValidValue(v string) bool {
	return v != "" && tokenizer.IsSafeValue(v)
}

// coerceValues accepts string, []string and []any. Non-string elements and
// empty strings inside a sequence are noise and are skipped.
func coerceValues(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, true
		}
		return []string{x}, true
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			if s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func sortedNames(raw map[string]any) []string {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dropped(name, reason string) {
	Logger().Debug().Str("header", name).Str("reason", reason).Msg("header dropped")
}
