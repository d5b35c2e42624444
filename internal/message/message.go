package message

import (
	"encoding/json"
	"strings"

	"github.com/wagiedev/voice-tool-router/internal/errors"
)

// ToolCallRequest asks a tool server to run the named tool.
//
// Wire format:
//
//	{"name": "get_weather", "arguments": {"city": "Oslo"}}
type ToolCallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Args returns the request arguments as a Value. Absent arguments are null.
func (r ToolCallRequest) Args() Value {
	if r.Arguments == nil {
		return Null()
	}

	return ValueOf(r.Arguments)
}

// ToolCallResponse is the result of a tool call.
//
// Wire format:
//
//	{
//	  "content": [{"type": "text", "text": "12°C, light rain"}],
//	  "isError": false
//	}
type ToolCallResponse struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// MarshalJSON emits an empty content array rather than null.
func (r ToolCallResponse) MarshalJSON() ([]byte, error) {
	type alias ToolCallResponse

	out := alias(r)
	if out.Content == nil {
		out.Content = []ContentBlock{}
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler for ToolCallResponse.
// A null or missing isError decodes as false.
func (r *ToolCallResponse) UnmarshalJSON(data []byte) error {
	var aux struct {
		Content []json.RawMessage `json:"content"`
		IsError *bool             `json:"isError"`
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return &errors.ProtocolError{Message: "decode tool call response", Err: err}
	}

	r.IsError = aux.IsError != nil && *aux.IsError
	r.Content = make([]ContentBlock, 0, len(aux.Content))

	for _, raw := range aux.Content {
		block, err := UnmarshalContentBlock(raw)
		if err != nil {
			return &errors.ProtocolError{Message: "decode content block", Err: err}
		}

		r.Content = append(r.Content, block)
	}

	return nil
}

// Text concatenates every text block, separated by newlines.
func (r ToolCallResponse) Text() string {
	parts := make([]string, 0, len(r.Content))

	for _, block := range r.Content {
		if text, ok := block.(*TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// TextResponse creates a ToolCallResponse with a single text block.
func TextResponse(text string) ToolCallResponse {
	return ToolCallResponse{Content: []ContentBlock{&TextBlock{Text: text}}}
}

// ErrorResponse creates a ToolCallResponse flagged as an error.
func ErrorResponse(message string) ToolCallResponse {
	return ToolCallResponse{
		Content: []ContentBlock{&TextBlock{Text: message}},
		IsError: true,
	}
}

// DataResponse creates a ToolCallResponse with a single data block.
func DataResponse(data, mimeType string) ToolCallResponse {
	return ToolCallResponse{Content: []ContentBlock{&DataBlock{Data: data, MIMEType: mimeType}}}
}
