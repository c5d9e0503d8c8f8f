package agent

import (
	"bytes"
	"encoding/json"
	"strings"

	"collegeseeker/types"
)

// ResponseContent is the tagged union of the payload shapes an LLM endpoint
// may produce: one plain text, or a sequence of fragments (streamed chunks,
// or a list mixing strings and structured parts). Exactly one of the two
// fields is populated.
type ResponseContent struct {
	Text      string
	Fragments []Fragment
}

// Fragment is one element of a structured response. Only its extractable
// text survives normalization.
type Fragment struct {
	Text string
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	// Plain string element.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Text = s
		return nil
	}

	// Structured element: take the first known text-bearing field.
	var obj struct {
		Text     string `json:"text"`
		Response string `json:"response"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Unknown shape carries no extractable text; drop it rather
		// than failing the whole payload.
		f.Text = ""
		return nil
	}
	switch {
	case obj.Text != "":
		f.Text = obj.Text
	case obj.Response != "":
		f.Text = obj.Response
	default:
		f.Text = obj.Content
	}
	return nil
}

// ParseResponse sniffs the body shape once and produces the tagged union.
// Handled shapes: a JSON string, a JSON array of mixed fragments, a JSON
// object with a text-bearing field, a stream of JSON objects (NDJSON), and
// raw non-JSON text. A body that claims to be JSON but fails to parse (a
// truncated stream, say) yields no content rather than the broken bytes.
func ParseResponse(body []byte) ResponseContent {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ResponseContent{}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ResponseContent{}
		}
		return ResponseContent{Text: s}
	case '[':
		var frags []Fragment
		if err := json.Unmarshal(trimmed, &frags); err != nil {
			return ResponseContent{}
		}
		return ResponseContent{Fragments: frags}
	case '{':
		// Single object, or a stream of them.
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		var frags []Fragment
		for decoder.More() {
			var f Fragment
			if err := decoder.Decode(&f); err != nil {
				return ResponseContent{}
			}
			frags = append(frags, f)
		}
		if len(frags) == 1 {
			return ResponseContent{Text: frags[0].Text}
		}
		return ResponseContent{Fragments: frags}
	}

	// Anything else is already plain text.
	return ResponseContent{Text: string(trimmed)}
}

// Normalize flattens the union into a single string, concatenating only the
// extractable text fragments. Normalizing the output of a previous Normalize
// yields the same string.
func (c ResponseContent) Normalize() (string, error) {
	if c.Fragments != nil {
		parts := make([]string, 0, len(c.Fragments))
		for _, f := range c.Fragments {
			if t := strings.TrimSpace(f.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			return "", types.EmptyResponseError{Source: "llm"}
		}
		return strings.Join(parts, "\n"), nil
	}

	text := strings.TrimSpace(c.Text)
	if text == "" {
		return "", types.EmptyResponseError{Source: "llm"}
	}
	return text, nil
}
