package models

import (
	"sort"

	"github.com/google/uuid"
)

// Mode is the default acquisition method applied absent a one-shot override.
type Mode string

const (
	ModeAuto   Mode = "auto"   // read files from disk, no paste fallback
	ModePaste  Mode = "paste"  // manual copy-paste for every file
	ModeHybrid Mode = "hybrid" // auto-read first, offer paste on failure
)

// modeCycle is the order the interactive 'm' command walks through.
var modeCycle = []Mode{ModeHybrid, ModePaste, ModeAuto}

// Valid reports whether m is one of the three known mode tokens.
func (m Mode) Valid() bool {
	return m == ModeAuto || m == ModePaste || m == ModeHybrid
}

// Next returns the mode that follows m in the cycle hybrid -> paste -> auto.
func (m Mode) Next() Mode {
	for i, c := range modeCycle {
		if c == m {
			return modeCycle[(i+1)%len(modeCycle)]
		}
	}
	return modeCycle[0]
}

// Label returns the uppercase display name of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeAuto:
		return "AUTO"
	case ModePaste:
		return "PASTE"
	default:
		return "HYBRID"
	}
}

// Method identifies the mechanism used for a single acquisition step.
type Method int

const (
	MethodDefault Method = iota // resolve from mode / override
	MethodDirect                // read from disk
	MethodManual                // paste capture
)

// NoCursor marks a session that has not touched any entry yet.
const NoCursor = -1

// SessionState is the durable record of acquisition progress. It owns the
// inventory snapshot it was built against; Done runs parallel to Files and
// Contents keys are always a subset of Files.
type SessionState struct {
	SessionID   string
	ScanRoots   []string
	Root        string
	Files       []string
	Done        []bool
	Contents    map[string]string
	Cursor      int
	PendingOnly bool
	Mode        Mode
}

// NewSessionState constructs a fresh session over the given inventory.
func NewSessionState(scanRoots []string, root string, files []string, mode Mode) *SessionState {
	return &SessionState{
		SessionID: uuid.NewString(),
		ScanRoots: scanRoots,
		Root:      root,
		Files:     files,
		Done:      make([]bool, len(files)),
		Contents:  make(map[string]string),
		Cursor:    NoCursor,
		Mode:      mode,
	}
}

// Len returns the inventory length.
func (s *SessionState) Len() int { return len(s.Files) }

// DoneCount returns the number of acquired entries.
func (s *SessionState) DoneCount() int {
	n := 0
	for _, d := range s.Done {
		if d {
			n++
		}
	}
	return n
}

// Complete reports whether every entry has been acquired.
func (s *SessionState) Complete() bool { return s.DoneCount() == len(s.Files) }

// NextPending returns the index of the first pending entry scanning
// circularly forward from start, or NoCursor when none are pending.
func (s *SessionState) NextPending(start int) int {
	for i := start; i < len(s.Done); i++ {
		if !s.Done[i] {
			return i
		}
	}
	for i := 0; i < start; i++ {
		if !s.Done[i] {
			return i
		}
	}
	return NoCursor
}

// NextFromCursor returns the next pending entry after the cursor, wrapping
// around; selection starts at 0 when no entry has been touched yet.
func (s *SessionState) NextFromCursor() int {
	if len(s.Files) == 0 {
		return NoCursor
	}
	start := 0
	if s.Cursor >= 0 {
		start = (s.Cursor + 1) % len(s.Files)
	}
	return s.NextPending(start)
}

// MarkAcquired commits a successful acquisition: flag flip, content write
// (fully replacing any prior content for the path), cursor update.
func (s *SessionState) MarkAcquired(idx int, content string) {
	s.Contents[s.Files[idx]] = content
	s.Done[idx] = true
	s.Cursor = idx
}

// CycleMode advances the active mode through the fixed cycle.
func (s *SessionState) CycleMode() { s.Mode = s.Mode.Next() }

// TogglePendingOnly flips the show-pending-only view preference.
func (s *SessionState) TogglePendingOnly() { s.PendingOnly = !s.PendingOnly }

// Pending lists the paths that still have no content, in inventory order.
func (s *SessionState) Pending() []string {
	var out []string
	for i, p := range s.Files {
		if !s.Done[i] {
			out = append(out, p)
		}
	}
	return out
}

// SkipList records why entries could not be read during an auto pass.
// It is transient; only the current bundle's skip block consumes it.
type SkipList map[string]string

// SortedPaths returns the skipped paths in lexicographic order.
func (sl SkipList) SortedPaths() []string {
	paths := make([]string, 0, len(sl))
	for p := range sl {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Checkpoint is the durable serialization of a SessionState.
type Checkpoint struct {
	GeneratedAt string            `json:"generated_at"`
	SessionID   string            `json:"session_id"`
	Fingerprint string            `json:"fingerprint"`
	ScanDirsAbs []string          `json:"scan_dirs_abs"`
	RelRoot     string            `json:"rel_root"`
	Files       []string          `json:"files"`
	Done        []bool            `json:"done"`
	Cursor      int               `json:"cursor"`
	PendingOnly bool              `json:"show_remaining_only"`
	Mode        string            `json:"mode"`
	Contents    map[string]string `json:"contents"`
}
