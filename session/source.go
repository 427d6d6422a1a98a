package session

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"codebundle/config"
	"codebundle/constants/lipgloss"
	"codebundle/session/contracts"

	"golang.org/x/text/encoding/htmlindex"
)

// DirectReadSource acquires content by reading files from disk under Root,
// applying the configured skip and decode policy. Every failure path
// returns a distinct machine-readable reason.
type DirectReadSource struct {
	Root  string
	Guard config.GuardConfig
}

var _ contracts.IContentSource = (*DirectReadSource)(nil)

// Acquire resolves relPath under Root and reads it as text.
func (s *DirectReadSource) Acquire(relPath string) (string, string, bool) {
	abs := filepath.Join(s.Root, filepath.FromSlash(relPath))

	info, err := os.Stat(abs)
	if err != nil {
		return "", "not-found", false
	}

	name := filepath.Base(abs)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	for _, skip := range s.Guard.SkipNames {
		if name == skip {
			return "", fmt.Sprintf("skip-name(%s)", name), false
		}
	}
	for _, skip := range s.Guard.SkipExtensions {
		if ext == skip {
			return "", fmt.Sprintf("skip-ext(.%s)", ext), false
		}
	}
	if s.Guard.MaxFileSizeBytes > 0 && info.Size() > s.Guard.MaxFileSizeBytes {
		return "", fmt.Sprintf("too-large(%d bytes)", info.Size()), false
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Sprintf("read-failed(%v)", err), false
	}

	// This system carries text only; a null byte anywhere means binary.
	if bytes.IndexByte(data, 0) >= 0 {
		return "", "binary-detected(NULL)", false
	}

	for _, enc := range s.Guard.Encodings {
		if text, ok := decodeText(data, enc); ok {
			return text, fmt.Sprintf("ok(%s)", enc), true
		}
	}
	return "", "decode-failed", false
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText attempts a single candidate encoding. "utf-8" validates the
// raw bytes, "utf-8-sig" additionally requires (and strips) the BOM; other
// names resolve through the WHATWG encoding index.
func decodeText(data []byte, enc string) (string, bool) {
	switch strings.ToLower(enc) {
	case "utf-8", "utf8":
		if utf8.Valid(data) {
			return string(data), true
		}
	case "utf-8-sig":
		if bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):]) {
			return string(data[len(utf8BOM):]), true
		}
	default:
		e, err := htmlindex.Get(enc)
		if err != nil {
			return "", false
		}
		out, err := e.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		// x/text decoders substitute U+FFFD for undecodable sequences
		// instead of failing; a replacement rune that was not already in
		// the input means the decode lost data.
		if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(data, []byte(string(utf8.RuneError))) {
			return "", false
		}
		return string(out), true
	}
	return "", false
}

// ManualCaptureSource acquires content by reading a delimited block from an
// interactive input stream: lines accumulate until a line whose trimmed
// content equals EndMarker, or until the stream is exhausted (an implicit
// terminator, reported distinctly).
type ManualCaptureSource struct {
	In           *bufio.Reader
	Out          io.Writer
	EndMarker    string
	ProgressStep int
}

var _ contracts.IContentSource = (*ManualCaptureSource)(nil)

// Acquire captures pasted content for relPath. The end-marker line is not
// part of the content; all prior lines keep their original terminators.
func (s *ManualCaptureSource) Acquire(relPath string) (string, string, bool) {
	fmt.Fprintf(s.Out, "Paste the file content. When you're done, type %s on a single line.\n\n",
		lipgloss.Cyan.Render(s.EndMarker))

	var captured strings.Builder
	lineCount := 0

	for {
		line, err := s.In.ReadString('\n')

		if strings.TrimSpace(line) == s.EndMarker {
			fmt.Fprintln(s.Out, lipgloss.Green.Render(
				fmt.Sprintf("%d lines captured for [%s].", lineCount, relPath)))
			return captured.String(), fmt.Sprintf("captured(%d lines)", lineCount), true
		}

		if line != "" {
			captured.WriteString(line)
			lineCount++
		}

		if err != nil {
			fmt.Fprintln(s.Out, lipgloss.Yellow.Render(
				fmt.Sprintf("Input EOF. %d lines captured.", lineCount)))
			return captured.String(), fmt.Sprintf("eof(%d lines)", lineCount), true
		}

		if s.ProgressStep > 0 && lineCount > 0 && lineCount%s.ProgressStep == 0 {
			fmt.Fprintf(s.Out, "%s\n", lipgloss.Dim.Render(
				fmt.Sprintf("Capturing... %d lines", lineCount)))
		}
	}
}
