package conversation

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStartsWithUserTurn(t *testing.T) {
	c := New("research fusion")

	turns := c.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "research fusion", turns[0].Blocks[0].Text)
}

func TestTurnsAreCopies(t *testing.T) {
	c := New("q")
	input := json.RawMessage(`{"research_query":"q"}`)
	require.NoError(t, c.AppendAssistant(
		ThinkingBlock("plan first", "sig-1"),
		ToolUseBlock("call_1", "research_search", input),
	))

	// mutate the caller's buffer and the returned snapshot
	input[2] = 'X'
	snapshot := c.Turns()
	snapshot[1].Blocks[0].Thinking = "edited"
	snapshot[1].Blocks = snapshot[1].Blocks[:1]

	again := c.Turns()
	assert.Equal(t, "plan first", again[1].Blocks[0].Thinking)
	assert.Equal(t, "sig-1", again[1].Blocks[0].Signature)
	require.Len(t, again[1].Blocks, 2)
	assert.JSONEq(t, `{"research_query":"q"}`, string(again[1].Blocks[1].Input))
}

func TestEachRoundExtendsPreviousSnapshot(t *testing.T) {
	c := New("q")
	var snapshots [][]Turn
	snapshots = append(snapshots, c.Turns())

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.AppendAssistant(
			ThinkingBlock("thought", "sig-"+id),
			TextBlock("searching"),
			ToolUseBlock(id, "research_search", json.RawMessage(`{}`)),
		))
		require.NoError(t, c.AppendToolResults(ToolResultBlock(id, "digest", false)))
		snapshots = append(snapshots, c.Turns())

		prev, cur := snapshots[i], snapshots[i+1]
		require.Len(t, cur, len(prev)+2)
		if diff := cmp.Diff(prev, cur[:len(prev)]); diff != "" {
			t.Fatalf("round %d rewrote history (-prev +cur):\n%s", i+1, diff)
		}
	}
}

func TestAppendToolResultsRejectsUnknownCall(t *testing.T) {
	c := New("q")
	require.NoError(t, c.AppendAssistant(ToolUseBlock("call_1", "research_search", nil)))

	err := c.AppendToolResults(ToolResultBlock("call_2", "x", false))
	assert.Error(t, err)

	err = c.AppendToolResults(TextBlock("not a result"))
	assert.Error(t, err)

	assert.NoError(t, c.AppendToolResults(ToolResultBlock("call_1", "x", false)))
	assert.Empty(t, c.PendingToolUses())
}

func TestAppendToolResultsAllowsTrailingText(t *testing.T) {
	c := New("q")
	require.NoError(t, c.AppendAssistant(ToolUseBlock("call_1", "research_search", nil)))

	require.NoError(t, c.AppendToolResults(
		ToolResultBlock("call_1", "findings", false),
		TextBlock("write the report now"),
	))
	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, RoleUser, last.Role)
	assert.Len(t, last.Blocks, 2)
	assert.Equal(t, KindText, last.Blocks[1].Kind)
}

func TestAppendRejectsEmptyTurn(t *testing.T) {
	c := New("q")
	assert.ErrorIs(t, c.AppendAssistant(), ErrEmptyTurn)
	assert.Equal(t, 1, c.Len())
}

func TestFinalTextAndThinkingTranscript(t *testing.T) {
	c := New("q")
	require.NoError(t, c.AppendAssistant(
		ThinkingBlock("first thought", "s1"),
		ToolUseBlock("t1", "research_search", nil),
	))
	require.NoError(t, c.AppendToolResults(ToolResultBlock("t1", "digest", false)))
	require.NoError(t, c.AppendAssistant(
		ThinkingBlock("second thought", "s2"),
		RedactedThinkingBlock("opaque"),
		TextBlock("# Report"),
		TextBlock("body"),
	))

	assert.Equal(t, "# Report\n\nbody", c.FinalText())
	assert.Equal(t, []string{"first thought", "second thought"}, c.ThinkingTranscript())
	assert.Empty(t, c.PendingToolUses())
}

func TestProjectTruncatesPreviews(t *testing.T) {
	c := New("a very long opening question")
	views := c.Project(6)

	require.Len(t, views, 1)
	assert.Equal(t, 1, views[0].Index)
	assert.Equal(t, "a very...", views[0].Blocks[0].Preview)
}
