package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium-dev/librarium/pkg/version"
)

// execute runs the root command against an isolated knowledge base with
// the offline embedder and returns its combined output.
func execute(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--root", root, "--offline"}, args...))

	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"add", "remove", "tag", "untag", "tags", "list", "search", "read", "stats", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--format", "json"})

	require.NoError(t, cmd.Execute())

	var info map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, version.Version, info["version"])
	assert.Contains(t, info, "go_version")
}

func TestCLI_AddListSearchRead(t *testing.T) {
	kb := filepath.Join(t.TempDir(), "kb")
	docs := t.TempDir()

	path := writeFile(t, docs, "python-guide.md",
		"# Python Guide\n\nAn introduction to python programming.\n")

	out, err := execute(t, kb, "add", path, "--tag", "python")
	require.NoError(t, err)
	assert.Contains(t, out, "added as")

	out, err = execute(t, kb, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "python-guide")
	assert.Contains(t, out, "[python]")

	out, err = execute(t, kb, "search", "python programming", "--strategy", "bm25")
	require.NoError(t, err)
	assert.Contains(t, out, "python-guide")

	out, err = execute(t, kb, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "python")

	out, err = execute(t, kb, "stats", "--format", "json")
	require.NoError(t, err)
	var stats map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats["documents"])
	assert.Equal(t, 1, stats["tags"])
	assert.Positive(t, stats["chunks"])
	assert.Positive(t, stats["vectors"])
}

func TestCLI_SearchJSONWithNoResults(t *testing.T) {
	kb := filepath.Join(t.TempDir(), "kb")

	out, err := execute(t, kb, "search", "anything", "--format", "json")
	require.NoError(t, err)

	var hits []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	assert.Empty(t, hits)
}

func TestCLI_AddRejectsUnsupportedFile(t *testing.T) {
	kb := filepath.Join(t.TempDir(), "kb")
	path := writeFile(t, t.TempDir(), "binary.bin", "\x00\x01")

	out, err := execute(t, kb, "add", path)
	assert.Error(t, err)
	assert.Contains(t, out, "unsupported file type")
}
