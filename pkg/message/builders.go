package message

import (
	"encoding/json"
	"io"
	"maps"

	"github.com/shapestone/shape-message/internal/grammar"
)

// NewJSONResponse creates a response whose body is data encoded as JSON with
// HTML-sensitive characters escaped. Content-Type defaults to
// application/json; status 0 means DefaultStatus.
func NewJSONResponse(data any, status int, headers map[string]any) (*Response, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, newError("new json response", ErrInvalidArgument, "unable to encode data: %v", err)
	}

	bag, err := NewHeaderBag(headers)
	if err != nil {
		return nil, err
	}
	if !bag.Has("Content-Type") {
		bag = bag.add("Content-Type", []string{"application/json"})
	}

	body, err := NewTempStream()
	if err != nil {
		return nil, err
	}
	r, err := fillJSONBody(body, encoded, status, bag)
	if err != nil {
		body.Close()
		return nil, err
	}
	return r, nil
}

func fillJSONBody(body *FileStream, encoded []byte, status int, bag HeaderBag) (*Response, error) {
	if _, err := body.Write(encoded); err != nil {
		return nil, err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return newResponse(body, status, bag)
}

// NewRedirectResponse creates a response redirecting to target, a string or
// *Uri, with an empty body. Status 0 means 302 Found.
func NewRedirectResponse(target any, status int, headers map[string]any) (*Response, error) {
	var location string
	switch t := target.(type) {
	case string:
		location = t
	case *Uri:
		if t != nil {
			location = t.String()
		}
	default:
		return nil, newError("new redirect response", ErrInvalidUri, "unsupported redirect target %T", target)
	}
	if location == "" {
		return nil, newError("new redirect response", ErrInvalidUri, "empty redirect target")
	}
	if status == 0 {
		status = 302
	}

	raw := maps.Clone(headers)
	if raw == nil {
		raw = make(map[string]any, 1)
	}
	for name := range raw {
		if grammar.EqualFold(name, "Location") {
			delete(raw, name)
		}
	}
	raw["Location"] = location
	return NewResponse(nil, status, raw)
}
