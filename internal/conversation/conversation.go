package conversation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTurn is returned when a turn without blocks is appended
var ErrEmptyTurn = errors.New("conversation: turn has no content blocks")

// Conversation is the append-only history exchanged with the reasoning model.
// Turns are copied in and out so stored blocks cannot be edited, reordered or
// dropped once appended. A Conversation is owned by a single supervisor run
// and is not safe for concurrent mutation.
type Conversation struct {
	turns []Turn
}

// New starts a conversation with the opening user text
func New(opening string) *Conversation {
	c := &Conversation{}
	c.turns = append(c.turns, Turn{Role: RoleUser, Blocks: []Block{TextBlock(opening)}})
	return c
}

// AppendAssistant adds a model turn exactly as received
func (c *Conversation) AppendAssistant(blocks ...Block) error {
	return c.append(RoleAssistant, blocks)
}

// AppendToolResults adds a user turn carrying tool results. Every tool result
// must answer a tool use of the latest assistant turn. Text blocks may follow
// the results, never precede them.
func (c *Conversation) AppendToolResults(results ...Block) error {
	pending := make(map[string]bool)
	for _, b := range c.PendingToolUses() {
		pending[b.ID] = true
	}
	seen := 0
	for _, r := range results {
		if r.Kind == KindText && seen > 0 {
			continue
		}
		if r.Kind != KindToolResult {
			return fmt.Errorf("conversation: expected tool_result block, got %s", r.Kind)
		}
		seen++
		if !pending[r.ToolUseID] {
			return fmt.Errorf("conversation: tool result for unknown call id %q", r.ToolUseID)
		}
	}
	return c.append(RoleUser, results)
}

func (c *Conversation) append(role Role, blocks []Block) error {
	if len(blocks) == 0 {
		return ErrEmptyTurn
	}
	c.turns = append(c.turns, Turn{Role: role, Blocks: blocks}.clone())
	return nil
}

// Turns returns a deep copy of every turn in order
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	for i, t := range c.turns {
		out[i] = t.clone()
	}
	return out
}

// Len returns the number of turns
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Last returns a copy of the latest turn
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1].clone(), true
}

// PendingToolUses returns the tool use blocks of the latest turn when it is an assistant turn
func (c *Conversation) PendingToolUses() []Block {
	last, ok := c.Last()
	if !ok || last.Role != RoleAssistant {
		return nil
	}
	var uses []Block
	for _, b := range last.Blocks {
		if b.Kind == KindToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// FinalText joins the text blocks of the latest assistant turn
func (c *Conversation) FinalText() string {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleAssistant {
			return TextOf(c.turns[i].Blocks)
		}
	}
	return ""
}

// TextOf joins the text blocks of a block sequence
func TextOf(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		if b.Kind == KindText && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ThinkingTranscript returns every thinking payload in conversation order
func (c *Conversation) ThinkingTranscript() []string {
	var out []string
	for _, t := range c.turns {
		for _, b := range t.Blocks {
			if b.Kind == KindThinking && b.Thinking != "" {
				out = append(out, b.Thinking)
			}
		}
	}
	return out
}

// BlockView is a display-only summary of one block
type BlockView struct {
	Kind    BlockKind
	Preview string
}

// TurnView is a display-only summary of one turn
type TurnView struct {
	Index  int
	Role   Role
	Blocks []BlockView
}

// Project renders a read-only view of the conversation with payloads cut to maxChars
func (c *Conversation) Project(maxChars int) []TurnView {
	views := make([]TurnView, 0, len(c.turns))
	for i, t := range c.turns {
		v := TurnView{Index: i + 1, Role: t.Role}
		for _, b := range t.Blocks {
			v.Blocks = append(v.Blocks, BlockView{Kind: b.Kind, Preview: truncate(preview(b), maxChars)})
		}
		views = append(views, v)
	}
	return views
}

func preview(b Block) string {
	switch b.Kind {
	case KindThinking:
		return b.Thinking
	case KindRedactedThinking:
		return "[redacted]"
	case KindText:
		return b.Text
	case KindToolUse:
		return fmt.Sprintf("%s %s", b.Name, string(b.Input))
	case KindToolResult:
		if b.IsError {
			return "error: " + b.Content
		}
		return b.Content
	}
	return ""
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
