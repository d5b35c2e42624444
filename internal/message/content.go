// Package message provides the envelope, content block and descriptor types
// exchanged between the tool router and tool servers.
package message

import (
	"encoding/json"
	"fmt"
)

// Block type constants.
const (
	BlockTypeText = "text"
	BlockTypeData = "data"
)

// ContentBlock represents a block of content within a tool call response.
type ContentBlock interface {
	BlockType() string
}

// Compile-time verification that all content block types implement ContentBlock.
var (
	_ ContentBlock = (*TextBlock)(nil)
	_ ContentBlock = (*DataBlock)(nil)
)

// TextBlock contains plain text content.
type TextBlock struct {
	Text string
}

// BlockType implements the ContentBlock interface.
func (b *TextBlock) BlockType() string { return BlockTypeText }

// MarshalJSON always emits the type tag and the text field, even when empty.
func (b *TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: BlockTypeText, Text: b.Text})
}

// DataBlock carries an opaque payload, usually base64-encoded binary data.
type DataBlock struct {
	Data     string
	MIMEType string
}

// BlockType implements the ContentBlock interface.
func (b *DataBlock) BlockType() string { return BlockTypeData }

// MarshalJSON always emits the type tag, the payload and the MIME type.
func (b *DataBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Data     string `json:"data"`
		MIMEType string `json:"mimeType"`
	}{Type: BlockTypeData, Data: b.Data, MIMEType: b.MIMEType})
}

// wireBlock is the union of all content block fields as they appear on the wire.
type wireBlock struct {
	Type     string  `json:"type"`
	Text     *string `json:"text,omitempty"`
	Data     *string `json:"data,omitempty"`
	MIMEType string  `json:"mimeType,omitempty"`
}

// UnmarshalContentBlock unmarshals a single content block from JSON.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var wire wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	switch wire.Type {
	case BlockTypeText:
		if wire.Text == nil {
			return nil, fmt.Errorf("text block missing 'text' field")
		}

		return &TextBlock{Text: *wire.Text}, nil
	case BlockTypeData:
		if wire.Data == nil {
			return nil, fmt.Errorf("data block missing 'data' field")
		}

		return &DataBlock{Data: *wire.Data, MIMEType: wire.MIMEType}, nil
	case "":
		return nil, fmt.Errorf("missing or invalid 'type' field")
	default:
		return nil, fmt.Errorf("unknown content block type %q", wire.Type)
	}
}
