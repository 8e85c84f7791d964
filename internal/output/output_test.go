package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_BufferGetsNoColor(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Success("added")
	w.Warning("careful")
	w.Error("broken")
	w.Dim("detail")

	out := buf.String()
	assert.Contains(t, out, "✓ added")
	assert.Contains(t, out, "! careful")
	assert.Contains(t, out, "✗ broken")
	assert.NotContains(t, out, "\x1b[", "non-terminal writers must not get ANSI codes")
}

func TestWriter_Printf(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Printf("found %d results", 3)
	assert.Equal(t, "found 3 results\n", buf.String())
}

func TestWriter_Indent(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Indent("first\nsecond")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{"   first", "   second"}, lines)
}

func TestWriter_Newline(t *testing.T) {
	var buf bytes.Buffer
	NewPlain(&buf).Newline()
	assert.Equal(t, "\n", buf.String())
}
