package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDirectoryTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "kb")

	l, err := Open(root)
	require.NoError(t, err)
	defer l.Close()

	assert.DirExists(t, filepath.Join(root, "docs"))
	assert.DirExists(t, filepath.Join(root, "index"))
	assert.Equal(t, root, l.Root())
}

func TestOpen_SecondHandleFails(t *testing.T) {
	root := filepath.Join(t.TempDir(), "kb")

	first, err := Open(root)
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(root)
	assert.Error(t, err, "the root lock is exclusive")
}

func TestOpen_ReopenAfterClose(t *testing.T) {
	root := filepath.Join(t.TempDir(), "kb")

	first, err := Open(root)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	assert.NoError(t, first.Close(), "double close is safe")

	second, err := Open(root)
	require.NoError(t, err)
	defer second.Close()
}

func TestLayout_DocumentRoundtrip(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "kb"))
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.WriteDocument("abc", ".txt", []byte("raw bytes"), "# converted\ntext"))

	md, err := l.ReadMarkdown("abc")
	require.NoError(t, err)
	assert.Equal(t, "# converted\ntext", md)

	raw, err := os.ReadFile(l.RawPath("abc", "txt"))
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(raw))

	ids, err := l.ListDocIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, ids)

	require.NoError(t, l.RemoveDocument("abc"))
	_, err = l.ReadMarkdown("abc")
	assert.Error(t, err)

	// Removing again is a no-op.
	assert.NoError(t, l.RemoveDocument("abc"))
}

func TestLayout_Paths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "kb")
	l, err := Open(root)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, filepath.Join(root, "docs", "x", "content.md"), l.ContentPath("x"))
	assert.Equal(t, filepath.Join(root, "index", "vectors.hnsw"), l.VectorIndexPath())
	assert.Equal(t, filepath.Join(root, "registry.db"), l.RegistryPath())
}
