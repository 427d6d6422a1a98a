package session

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codebundle/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectSource(t *testing.T) (*DirectReadSource, string) {
	t.Helper()
	tempDir := t.TempDir()
	return &DirectReadSource{Root: tempDir, Guard: config.DefaultConfig.Guard}, tempDir
}

func writeBytes(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, data, 0o644))
}

func TestDirectRead_UTF8(t *testing.T) {
	src, root := newDirectSource(t)
	writeBytes(t, root, "sub/main.py", []byte("print('hi')\n"))

	content, reason, ok := src.Acquire("sub/main.py")
	require.True(t, ok)
	assert.Equal(t, "print('hi')\n", content)
	assert.Equal(t, "ok(utf-8)", reason)
}

func TestDirectRead_UTF8BOMStripped(t *testing.T) {
	src, root := newDirectSource(t)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("x = 1\n")...)
	writeBytes(t, root, "bom.py", data)

	// Plain utf-8 wins first and keeps the BOM bytes; restrict the
	// candidate list to exercise the sig variant.
	src.Guard.Encodings = []string{"utf-8-sig"}

	content, reason, ok := src.Acquire("bom.py")
	require.True(t, ok)
	assert.Equal(t, "x = 1\n", content)
	assert.Equal(t, "ok(utf-8-sig)", reason)
}

func TestDirectRead_EUCKRFallback(t *testing.T) {
	src, root := newDirectSource(t)
	// "가" encoded as EUC-KR; invalid as UTF-8.
	writeBytes(t, root, "korean.py", []byte{0xB0, 0xA1, '\n'})

	content, reason, ok := src.Acquire("korean.py")
	require.True(t, ok)
	assert.Equal(t, "가\n", content)
	assert.Equal(t, "ok(euc-kr)", reason)
}

func TestDirectRead_NotFound(t *testing.T) {
	src, _ := newDirectSource(t)

	_, reason, ok := src.Acquire("missing.py")
	assert.False(t, ok)
	assert.Equal(t, "not-found", reason)
}

func TestDirectRead_SkipName(t *testing.T) {
	src, root := newDirectSource(t)
	writeBytes(t, root, ".env", []byte("SECRET=1"))

	_, reason, ok := src.Acquire(".env")
	assert.False(t, ok)
	assert.Equal(t, "skip-name(.env)", reason)
}

func TestDirectRead_SkipExtension(t *testing.T) {
	src, root := newDirectSource(t)
	writeBytes(t, root, "server.pem", []byte("---"))

	_, reason, ok := src.Acquire("server.pem")
	assert.False(t, ok)
	assert.Equal(t, "skip-ext(.pem)", reason)
}

func TestDirectRead_TooLarge(t *testing.T) {
	src, root := newDirectSource(t)
	src.Guard.MaxFileSizeBytes = 4
	writeBytes(t, root, "big.py", []byte("12345"))

	_, reason, ok := src.Acquire("big.py")
	assert.False(t, ok)
	assert.Equal(t, "too-large(5 bytes)", reason)
}

func TestDirectRead_BinaryDetected(t *testing.T) {
	src, root := newDirectSource(t)
	writeBytes(t, root, "blob.py", []byte{'a', 0x00, 'b'})

	_, reason, ok := src.Acquire("blob.py")
	assert.False(t, ok)
	assert.Equal(t, "binary-detected(NULL)", reason)
}

func TestDirectRead_DecodeFailed(t *testing.T) {
	src, root := newDirectSource(t)
	// Invalid in UTF-8 and not a legal EUC-KR sequence either.
	writeBytes(t, root, "junk.py", []byte{0xFF, 0xFE, 0xFF})

	_, reason, ok := src.Acquire("junk.py")
	assert.False(t, ok)
	assert.Equal(t, "decode-failed", reason)
}

func newManualSource(input string) (*ManualCaptureSource, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &ManualCaptureSource{
		In:           bufio.NewReader(strings.NewReader(input)),
		Out:          out,
		EndMarker:    `\END`,
		ProgressStep: 50,
	}, out
}

// Test that capture accumulates lines up to (not including) the end marker.
func TestManualCapture_EndMarker(t *testing.T) {
	src, _ := newManualSource("line one\nline two\n\\END\nnever read\n")

	content, reason, ok := src.Acquire("a.py")
	require.True(t, ok)
	assert.Equal(t, "line one\nline two\n", content)
	assert.Equal(t, "captured(2 lines)", reason)
}

// Test that the marker is matched on its trimmed form.
func TestManualCapture_MarkerWithWhitespace(t *testing.T) {
	src, _ := newManualSource("body\n  \\END  \n")

	content, reason, ok := src.Acquire("a.py")
	require.True(t, ok)
	assert.Equal(t, "body\n", content)
	assert.Equal(t, "captured(1 lines)", reason)
}

// Test that stream exhaustion terminates the capture and is reported
// distinctly from an explicit marker.
func TestManualCapture_EOF(t *testing.T) {
	src, _ := newManualSource("only line\n")

	content, reason, ok := src.Acquire("a.py")
	require.True(t, ok)
	assert.Equal(t, "only line\n", content)
	assert.Equal(t, "eof(1 lines)", reason)
}

// Test that a capture terminated immediately still succeeds with empty
// content.
func TestManualCapture_EmptyCapture(t *testing.T) {
	src, _ := newManualSource("\\END\n")

	content, reason, ok := src.Acquire("a.py")
	require.True(t, ok)
	assert.Equal(t, "", content)
	assert.Equal(t, "captured(0 lines)", reason)
}

// Test that a final line without a trailing newline is kept as-is.
func TestManualCapture_NoTrailingNewline(t *testing.T) {
	src, _ := newManualSource("tail without newline")

	content, reason, ok := src.Acquire("a.py")
	require.True(t, ok)
	assert.Equal(t, "tail without newline", content)
	assert.Equal(t, "eof(1 lines)", reason)
}
