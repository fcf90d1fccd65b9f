package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONOnlyWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	Disable()
	WriteJSON("skipped", map[string]string{"a": "b"})

	Enable(dir)
	t.Cleanup(Disable)
	require.True(t, Enabled())
	WriteJSON("planner-request", map[string]string{"query": "fusion"})
	WriteBlob("raw", "txt", []byte("not json"))

	skipped, _ := filepath.Glob(filepath.Join(Dir(), "skipped-*"))
	assert.Empty(t, skipped)

	files, err := filepath.Glob(filepath.Join(Dir(), "planner-request-*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"fusion"}`, string(data))

	blobs, _ := filepath.Glob(filepath.Join(Dir(), "raw-*.txt"))
	assert.Len(t, blobs, 1)
}
