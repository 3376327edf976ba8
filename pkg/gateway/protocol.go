package gateway

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// The tool server protocol is newline-delimited JSON over the server's
// stdin/stdout. Each request is a single line; each response is the next
// line. Responses are matched to requests by strict order: a connection
// carries exactly one outstanding request at a time.

type request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type response struct {
	Tools   []wireTool     `json:"tools,omitempty"`
	Content []contentBlock `json:"content,omitempty"`
	Err     *remoteError   `json:"error,omitempty"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type remoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// wireSchema is the JSON Schema subset tool servers emit for their inputs.
type wireSchema struct {
	Properties map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// decodeResult extracts the payload of a tools/call response: the text of the
// first content block, JSON-decoded when possible, the literal string otherwise.
func decodeResult(resp *response) any {
	if len(resp.Content) == 0 {
		return nil
	}
	text := resp.Content[0].Text
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	return text
}

// parseSchema converts a wire inputSchema into field specs.
func parseSchema(raw json.RawMessage) (map[string]FieldSpec, error) {
	if len(raw) == 0 {
		return map[string]FieldSpec{}, nil
	}
	var ws wireSchema
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, errors.Wrap(err, "malformed inputSchema")
	}
	required := make(map[string]bool, len(ws.Required))
	for _, name := range ws.Required {
		required[name] = true
	}
	fields := make(map[string]FieldSpec, len(ws.Properties))
	for name, prop := range ws.Properties {
		typ := prop.Type
		if typ == "" {
			typ = "string"
		}
		fields[name] = FieldSpec{Type: typ, Required: required[name]}
	}
	return fields, nil
}
