package conversation

import (
	"bytes"
	"encoding/json"
)

// Domain models for the supervisor conversation (turns and content blocks).
// Thinking payloads and signatures are provider-issued and opaque; they are
// stored and echoed byte for byte.

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockKind string

const (
	KindThinking         BlockKind = "thinking"
	KindRedactedThinking BlockKind = "redacted_thinking"
	KindText             BlockKind = "text"
	KindToolUse          BlockKind = "tool_use"
	KindToolResult       BlockKind = "tool_result"
)

// Block is a tagged union over the content block variants.
// Only the fields belonging to Kind are meaningful.
type Block struct {
	Kind BlockKind `json:"type"`

	// thinking / redacted_thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
	Data      string `json:"data,omitempty"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

func ThinkingBlock(thinking, signature string) Block {
	return Block{Kind: KindThinking, Thinking: thinking, Signature: signature}
}

func RedactedThinkingBlock(data string) Block {
	return Block{Kind: KindRedactedThinking, Data: data}
}

func TextBlock(text string) Block {
	return Block{Kind: KindText, Text: text}
}

func ToolUseBlock(id, name string, input json.RawMessage) Block {
	return Block{Kind: KindToolUse, ID: id, Name: name, Input: input}
}

func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Kind: KindToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// clone returns a copy that shares no memory with b
func (b Block) clone() Block {
	if b.Input != nil {
		b.Input = append(json.RawMessage(nil), b.Input...)
	}
	return b
}

// Equal reports whether two blocks are identical, including opaque payloads
func (b Block) Equal(o Block) bool {
	return b.Kind == o.Kind &&
		b.Thinking == o.Thinking &&
		b.Signature == o.Signature &&
		b.Data == o.Data &&
		b.Text == o.Text &&
		b.ID == o.ID &&
		b.Name == o.Name &&
		bytes.Equal(b.Input, o.Input) &&
		b.ToolUseID == o.ToolUseID &&
		b.Content == o.Content &&
		b.IsError == o.IsError
}

// Turn is one message of the conversation
type Turn struct {
	Role   Role    `json:"role"`
	Blocks []Block `json:"content"`
}

func (t Turn) clone() Turn {
	blocks := make([]Block, len(t.Blocks))
	for i, b := range t.Blocks {
		blocks[i] = b.clone()
	}
	return Turn{Role: t.Role, Blocks: blocks}
}
