package message

import (
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/voice-tool-router/internal/errors"
)

func TestToolCallResponseJSONRoundTrip(t *testing.T) {
	resp := ToolCallResponse{
		Content: []ContentBlock{
			&TextBlock{Text: "3 stations nearby"},
			&DataBlock{Data: "eyJ4IjoxfQ==", MIMEType: "application/json"},
		},
		IsError: true,
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"content": [
			{"type": "text", "text": "3 stations nearby"},
			{"type": "data", "data": "eyJ4IjoxfQ==", "mimeType": "application/json"}
		],
		"isError": true
	}`, string(data))

	var decoded ToolCallResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, resp, decoded)
}

func TestToolCallResponseEmptyContent(t *testing.T) {
	data, err := json.Marshal(ToolCallResponse{})
	require.NoError(t, err)
	require.JSONEq(t, `{"content": []}`, string(data))

	var decoded ToolCallResponse
	require.NoError(t, json.Unmarshal([]byte(`{"content": [], "isError": null}`), &decoded))
	require.False(t, decoded.IsError)
	require.Empty(t, decoded.Content)
}

func TestToolCallResponseRejectsMalformedBlocks(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown type", data: `{"content": [{"type": "video"}]}`},
		{name: "missing type", data: `{"content": [{"text": "x"}]}`},
		{name: "text without text", data: `{"content": [{"type": "text"}]}`},
		{name: "data without payload", data: `{"content": [{"type": "data", "mimeType": "image/png"}]}`},
		{name: "not an object", data: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ToolCallResponse
			err := json.Unmarshal([]byte(tt.data), &resp)
			require.ErrorIs(t, err, errors.ErrInvalidResponse)
		})
	}
}

func TestToolCallRequestJSON(t *testing.T) {
	var req ToolCallRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name": "get_weather", "arguments": null}`), &req))
	require.Equal(t, "get_weather", req.Name)
	require.Nil(t, req.Arguments)

	data, err := json.Marshal(ToolCallRequest{Name: "get_weather", Arguments: map[string]any{"city": "Oslo"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"name": "get_weather", "arguments": {"city": "Oslo"}}`, string(data))
}

func TestResponseHelpers(t *testing.T) {
	require.Equal(t, "ok", TextResponse("ok").Text())
	require.True(t, ErrorResponse("nope").IsError)
	require.Equal(t, BlockTypeData, DataResponse("AA==", "image/png").Content[0].BlockType())

	multi := ToolCallResponse{Content: []ContentBlock{
		&TextBlock{Text: "a"},
		&DataBlock{Data: "AA=="},
		&TextBlock{Text: "b"},
	}}
	require.Equal(t, "a\nb", multi.Text())
}

func TestSchemaBuilders(t *testing.T) {
	schema := ClosedObjectSchema(map[string]*jsonschema.Schema{
		"units": Property("string", "unit system", WithEnum("metric", "imperial")),
		"when":  Property("string", "", WithFormat("date-time")),
	}, "units")

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"units"}, schema.Required)
	require.Equal(t, []any{"metric", "imperial"}, schema.Properties["units"].Enum)
	require.Equal(t, "date-time", schema.Properties["when"].Format)
	require.False(t, AdditionalPropertiesAllowed(schema))
	require.True(t, AdditionalPropertiesAllowed(ObjectSchema(nil)))

	simple := SimpleSchema(map[string]string{"lat": "float64", "tags": "[]string", "open": "bool"})
	require.ElementsMatch(t, []string{"lat", "tags", "open"}, simple.Required)
	require.Equal(t, "number", simple.Properties["lat"].Type)
	require.Equal(t, "array", simple.Properties["tags"].Type)
	require.Equal(t, "string", simple.Properties["tags"].Items.Type)
	require.Equal(t, "boolean", simple.Properties["open"].Type)
}
