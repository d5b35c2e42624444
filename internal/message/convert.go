package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/voice-tool-router/internal/errors"
)

// dataURIPrefix marks embedded resources that carry a DataBlock payload.
const dataURIPrefix = "data:"

// FromCallToolResult converts an MCP CallToolResult into a ToolCallResponse.
//
// Text content and embedded text resources become TextBlocks. Image, audio
// and blob payloads become DataBlocks carrying base64 data, as do text
// resources under a data: URI. Resource links are rendered as their URI.
func FromCallToolResult(result *mcp.CallToolResult) ToolCallResponse {
	if result == nil {
		return ToolCallResponse{Content: []ContentBlock{}}
	}

	content := make([]ContentBlock, 0, len(result.Content))

	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			content = append(content, &TextBlock{Text: v.Text})
		case *mcp.ImageContent:
			content = append(content, &DataBlock{
				Data:     base64.StdEncoding.EncodeToString(v.Data),
				MIMEType: v.MIMEType,
			})
		case *mcp.AudioContent:
			content = append(content, &DataBlock{
				Data:     base64.StdEncoding.EncodeToString(v.Data),
				MIMEType: v.MIMEType,
			})
		case *mcp.ResourceLink:
			content = append(content, &TextBlock{Text: v.URI})
		case *mcp.EmbeddedResource:
			if v.Resource == nil {
				continue
			}

			switch {
			case len(v.Resource.Blob) > 0:
				content = append(content, &DataBlock{
					Data:     base64.StdEncoding.EncodeToString(v.Resource.Blob),
					MIMEType: v.Resource.MIMEType,
				})
			case strings.HasPrefix(v.Resource.URI, dataURIPrefix):
				content = append(content, &DataBlock{
					Data:     v.Resource.Text,
					MIMEType: v.Resource.MIMEType,
				})
			default:
				content = append(content, &TextBlock{Text: v.Resource.Text})
			}
		}
	}

	return ToolCallResponse{
		Content: content,
		IsError: result.IsError,
	}
}

// ToCallToolResult converts a ToolCallResponse into an MCP CallToolResult.
//
// DataBlocks with image or audio MIME types map to the matching MCP content;
// any other payload is carried as an embedded blob resource. Data that is not
// canonical base64 travels verbatim as a text resource so it comes back unchanged.
func ToCallToolResult(resp ToolCallResponse) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(resp.Content))

	for _, block := range resp.Content {
		switch b := block.(type) {
		case *TextBlock:
			content = append(content, &mcp.TextContent{Text: b.Text})
		case *DataBlock:
			raw, ok := decodeCanonical(b.Data)
			if !ok {
				content = append(content, &mcp.EmbeddedResource{
					Resource: &mcp.ResourceContents{
						URI:      dataURIPrefix + b.MIMEType,
						MIMEType: b.MIMEType,
						Text:     b.Data,
					},
				})

				continue
			}

			switch {
			case strings.HasPrefix(b.MIMEType, "image/"):
				content = append(content, &mcp.ImageContent{Data: raw, MIMEType: b.MIMEType})
			case strings.HasPrefix(b.MIMEType, "audio/"):
				content = append(content, &mcp.AudioContent{Data: raw, MIMEType: b.MIMEType})
			default:
				content = append(content, &mcp.EmbeddedResource{
					Resource: &mcp.ResourceContents{
						URI:      "data:" + b.MIMEType,
						MIMEType: b.MIMEType,
						Blob:     raw,
					},
				})
			}
		}
	}

	return &mcp.CallToolResult{
		Content: content,
		IsError: resp.IsError,
	}
}

// decodeCanonical decodes standard base64 only when re-encoding yields the
// same string.
func decodeCanonical(data string) ([]byte, bool) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || base64.StdEncoding.EncodeToString(raw) != data {
		return nil, false
	}

	return raw, true
}

// DescriptorFromTool converts an MCP tool definition into a ToolDescriptor.
// Input schemas that are not already *jsonschema.Schema are re-decoded from JSON.
func DescriptorFromTool(tool *mcp.Tool) (ToolDescriptor, error) {
	if tool == nil {
		return ToolDescriptor{}, &errors.ProtocolError{Message: "nil tool definition"}
	}

	if tool.Name == "" {
		return ToolDescriptor{}, &errors.ProtocolError{Message: "tool definition missing name"}
	}

	schema, err := schemaFromAny(tool.InputSchema)
	if err != nil {
		return ToolDescriptor{}, &errors.ProtocolError{
			Message: fmt.Sprintf("tool %s input schema", tool.Name),
			Err:     err,
		}
	}

	return NewToolDescriptor(tool.Name, tool.Description, schema), nil
}

// ToolFromDescriptor converts a ToolDescriptor into an MCP tool definition.
func ToolFromDescriptor(desc ToolDescriptor) *mcp.Tool {
	schema := desc.InputSchema
	if schema == nil {
		schema = ObjectSchema(nil)
	}

	return &mcp.Tool{
		Name:        desc.Name,
		Description: desc.Description,
		InputSchema: schema,
	}
}

func schemaFromAny(v any) (*jsonschema.Schema, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case *jsonschema.Schema:
		return s, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal input schema: %w", err)
	}

	return &schema, nil
}

// ParseArguments decodes raw MCP call arguments into a map.
// Empty or null arguments decode to an empty map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, &errors.ProtocolError{Message: "decode tool arguments", Err: err}
	}

	if args == nil {
		args = make(map[string]any)
	}

	return args, nil
}

// ParseResponse decodes a wire-format map (as produced by json.Unmarshal into
// map[string]any) into a ToolCallResponse.
func ParseResponse(data map[string]any) (ToolCallResponse, error) {
	raw, err := json.Marshal(Sanitize(data))
	if err != nil {
		return ToolCallResponse{}, &errors.ProtocolError{Message: "encode response", Err: err}
	}

	var resp ToolCallResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ToolCallResponse{}, &errors.ProtocolError{Message: "decode response", Err: err}
	}

	return resp, nil
}
