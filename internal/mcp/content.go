package mcp

import "encoding/json"

// ContentKind tags a ContentItem.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentImage
	// ContentOther covers block types the harness does not interpret
	// (audio, embedded resources).
	ContentOther
)

// ContentItem is one block of a tool result. Text is set for ContentText;
// Data and MimeType for ContentImage.
type ContentItem struct {
	Kind     ContentKind
	Type     string
	Text     string
	Data     string
	MimeType string
}

// TextContent builds a text item.
func TextContent(text string) ContentItem {
	return ContentItem{Kind: ContentText, Type: "text", Text: text}
}

type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ContentItem) UnmarshalJSON(data []byte) error {
	var b contentBlock
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*c = ContentItem{Type: b.Type, Text: b.Text, Data: b.Data, MimeType: b.MimeType}
	switch b.Type {
	case "text":
		c.Kind = ContentText
	case "image":
		c.Kind = ContentImage
	default:
		c.Kind = ContentOther
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c ContentItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentBlock{Type: c.Type, Text: c.Text, Data: c.Data, MimeType: c.MimeType})
}

// ToolResult is the normalized result of a tool call.
type ToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// FirstText returns the first text item's string, or "" when there is none.
func (r *ToolResult) FirstText() string {
	if r == nil {
		return ""
	}
	for _, item := range r.Content {
		if item.Kind == ContentText {
			return item.Text
		}
	}
	return ""
}
