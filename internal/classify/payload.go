package classify

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// PayloadKind tags a Payload.
type PayloadKind int

const (
	// PayloadList is a decoded JSON array.
	PayloadList PayloadKind = iota
	// PayloadObject is a decoded JSON object.
	PayloadObject
	// PayloadText is undecodable text wrapped as {"result": text}.
	PayloadText
	// PayloadScalar is a decoded JSON string, number, bool or null.
	PayloadScalar
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadList:
		return "list"
	case PayloadObject:
		return "object"
	case PayloadText:
		return "text"
	default:
		return "scalar"
	}
}

// Payload is a tool result's first text item resolved into one of its
// possible shapes.
type Payload struct {
	Kind   PayloadKind
	List   []any
	Object map[string]any
	Text   string
	Scalar any
}

// DecodePayload parses text as JSON. Text that is not valid JSON becomes a
// PayloadText.
func DecodePayload(text string) Payload {
	var v any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Payload{Kind: PayloadText, Text: text}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{Kind: PayloadText, Text: text}
	}
	return payloadOf(v)
}

func payloadOf(v any) Payload {
	switch t := v.(type) {
	case []any:
		if t == nil {
			t = []any{}
		}
		return Payload{Kind: PayloadList, List: t}
	case map[string]any:
		return Payload{Kind: PayloadObject, Object: t}
	default:
		return Payload{Kind: PayloadScalar, Scalar: t}
	}
}

// errorPayload wraps an error result's text under an "error" key.
func errorPayload(text string) Payload {
	return Payload{Kind: PayloadObject, Object: map[string]any{"error": text}}
}

// Result returns the value of the "result" member. Text payloads expose
// their raw text there.
func (p Payload) Result() (any, bool) {
	switch p.Kind {
	case PayloadText:
		return p.Text, true
	case PayloadObject:
		v, ok := p.Object["result"]
		return v, ok
	}
	return nil, false
}

// HasError reports whether the payload is a mapping with an "error" key.
func (p Payload) HasError() bool {
	if p.Kind != PayloadObject {
		return false
	}
	_, ok := p.Object["error"]
	return ok
}

// Value returns the payload as a plain JSON-compatible value, with text
// payloads rendered as {"result": text}.
func (p Payload) Value() any {
	switch p.Kind {
	case PayloadList:
		return p.List
	case PayloadObject:
		return p.Object
	case PayloadText:
		return map[string]any{"result": p.Text}
	default:
		return p.Scalar
	}
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}
