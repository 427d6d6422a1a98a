package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codebundle/session/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedAssembler() *Assembler {
	return &Assembler{Now: func() time.Time {
		return time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	}}
}

// Test the full document layout: header, skip block, delimited sections in
// inventory order, pending entries omitted.
func TestAssembler_Build(t *testing.T) {
	state := models.NewSessionState([]string{"/proj/src"}, "/proj/src",
		[]string{"a.py", "b.sql", "c.js"}, models.ModeHybrid)
	state.MarkAcquired(0, "X\n")
	state.MarkAcquired(1, "Y") // no trailing newline in the content itself

	skips := models.SkipList{
		"d.h":   "not-found",
		"b2.py": "too-large(10 bytes)",
	}

	got := fixedAssembler().Build(state, skips)

	want := "=== BUNDLE GENERATED: 2026-08-23T10:30:00 ===\n" +
		"=== REL_ROOT: /proj/src ===\n" +
		"=== SKIPPED (auto-read) ===\n" +
		"- b2.py :: too-large(10 bytes)\n" +
		"- d.h :: not-found\n" +
		"\n" +
		"\n" +
		"=== FILE: a.py ===\n" +
		"X\n" +
		"=== END FILE: a.py ===\n" +
		"\n" +
		"=== FILE: b.sql ===\n" +
		"Y\n" +
		"=== END FILE: b.sql ===\n" +
		"\n"

	assert.Equal(t, want, got)
}

// Test that an empty skip list leaves no skip block at all.
func TestAssembler_BuildNoSkips(t *testing.T) {
	state := models.NewSessionState([]string{"/p"}, "/p", []string{"a.py"}, models.ModeAuto)
	state.MarkAcquired(0, "body\n")

	got := fixedAssembler().Build(state, nil)

	want := "=== BUNDLE GENERATED: 2026-08-23T10:30:00 ===\n" +
		"=== REL_ROOT: /p ===\n" +
		"\n" +
		"=== FILE: a.py ===\n" +
		"body\n" +
		"=== END FILE: a.py ===\n" +
		"\n"

	assert.Equal(t, want, got)
}

// Test that deliberately empty content still yields a section, with the
// footer directly after the header.
func TestAssembler_BuildEmptyContent(t *testing.T) {
	state := models.NewSessionState([]string{"/p"}, "/p", []string{"empty.py"}, models.ModePaste)
	state.MarkAcquired(0, "")

	got := fixedAssembler().Build(state, nil)

	assert.Contains(t, got, "=== FILE: empty.py ===\n=== END FILE: empty.py ===\n")
}

// Test that assembly is a pure function of state: two builds are identical.
func TestAssembler_Deterministic(t *testing.T) {
	state := models.NewSessionState([]string{"/p"}, "/p", []string{"a.py", "b.py"}, models.ModeHybrid)
	state.MarkAcquired(1, "two\n")
	state.MarkAcquired(0, "one\n")

	a := fixedAssembler()
	assert.Equal(t, a.Build(state, nil), a.Build(state, nil))
}

func TestWriteBundle_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.txt")

	require.NoError(t, WriteBundle(path, "first version\n"))
	require.NoError(t, WriteBundle(path, "second\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}
