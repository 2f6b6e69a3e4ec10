package protocol

import "encoding/json"

// ContentBlock is the nested sum type carried by Assistant and User
// messages (spec.md §3 "Content block").
type ContentBlock interface {
	BlockType() string
}

// TextBlock is plain model output.
type TextBlock struct {
	Text string
}

func (TextBlock) BlockType() string { return "text" }

// ThinkingBlock is extended-thinking output.
type ThinkingBlock struct {
	Thinking string
}

func (ThinkingBlock) BlockType() string { return "thinking" }

// ToolUseBlock is a tool invocation the model requested.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

func (ToolUseBlock) BlockType() string { return "tool_use" }

// ToolResultBlock is the CLI reporting a tool's execution back into the
// conversation (carried by synthetic User messages).
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (ToolResultBlock) BlockType() string { return "tool_result" }

// wireContentBlock is the on-the-wire shape of one array element under
// "content"; every field is optional depending on Type.
type wireContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

func decodeContentBlock(w wireContentBlock) (ContentBlock, bool) {
	switch w.Type {
	case "text":
		return TextBlock{Text: w.Text}, true
	case "thinking":
		return ThinkingBlock{Thinking: w.Thinking}, true
	case "tool_use":
		return ToolUseBlock{ID: w.ID, Name: w.Name, Input: w.Input}, true
	case "tool_result":
		return ToolResultBlock{ToolUseID: w.ToolUseID, Content: w.Content, IsError: w.IsError}, true
	default:
		return nil, false
	}
}

func decodeContentBlocks(raw json.RawMessage) ([]ContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wires []wireContentBlock
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, err
	}
	blocks := make([]ContentBlock, 0, len(wires))
	for _, w := range wires {
		if b, ok := decodeContentBlock(w); ok {
			blocks = append(blocks, b)
		}
		// Unknown block types are dropped, not fatal (spec.md §4.C).
	}
	return blocks, nil
}
