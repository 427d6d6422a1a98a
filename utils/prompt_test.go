package utils

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// newBlockedReader returns a reader with no data; reads on it block until
// the writer is closed.
func newBlockedReader() (*bufio.Reader, *io.PipeWriter) {
	r, w := io.Pipe()
	return bufio.NewReader(r), w
}

func TestReadCommand_Trims(t *testing.T) {
	out := &bytes.Buffer{}
	assert.Equal(t, "a 12", ReadCommand(reader("  a 12  \n"), out))
}

// End-of-stream behaves like an explicit quit so a closed stdin cannot
// spin the command loop.
func TestReadCommand_EOFQuits(t *testing.T) {
	out := &bytes.Buffer{}
	assert.Equal(t, "q", ReadCommand(reader(""), out))
}

func TestReadCommandWithContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A blocked reader; cancellation must win.
	blocked, w := newBlockedReader()
	defer w.Close()

	out := &bytes.Buffer{}
	_, err := ReadCommandWithContext(ctx, blocked, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCommandWithContext_DeliversInput(t *testing.T) {
	out := &bytes.Buffer{}
	got, err := ReadCommandWithContext(context.Background(), reader("m\n"), out)
	require.NoError(t, err)
	assert.Equal(t, "m", got)
}

func TestAskYesNo(t *testing.T) {
	out := &bytes.Buffer{}

	assert.True(t, AskYesNo("? ", reader("y\n"), out))
	assert.True(t, AskYesNo("? ", reader("YES\n"), out))
	assert.False(t, AskYesNo("? ", reader("n\n"), out))
	assert.False(t, AskYesNo("? ", reader("\n"), out)) // default is no
	assert.False(t, AskYesNo("? ", reader(""), out))   // EOF is no
}
