package session

import (
	"fmt"
	"strings"
	"time"

	"codebundle/session/models"
)

// Bundle document markers. The begin/end markers carry the path so a
// reader can locate any file without counting sections.
const (
	bundleHeaderFmt = "=== BUNDLE GENERATED: %s ===\n"
	relRootFmt      = "=== REL_ROOT: %s ===\n"
	skipHeader      = "=== SKIPPED (auto-read) ===\n"
	fileHeaderFmt   = "=== FILE: %s ===\n"
	fileFooterFmt   = "=== END FILE: %s ===\n"
	sectionGap      = "\n"
)

// Assembler renders the final bundle document from session state. The
// output is a derived view: rebuilt from scratch and fully overwritten on
// every assembly.
type Assembler struct {
	// Now is the clock stamped into the header; tests substitute it.
	Now func() time.Time
}

// NewAssembler returns an assembler using the wall clock.
func NewAssembler() *Assembler {
	return &Assembler{Now: time.Now}
}

// Build renders the bundle text: header, optional skip block, then one
// delimited group per acquired path in inventory order. Paths without
// acquired content are omitted from the body entirely.
func (a *Assembler) Build(state *models.SessionState, skipped models.SkipList) string {
	var parts strings.Builder

	parts.WriteString(fmt.Sprintf(bundleHeaderFmt, a.Now().Format(timeLayout)))
	parts.WriteString(fmt.Sprintf(relRootFmt, state.Root))

	if len(skipped) > 0 {
		parts.WriteString(skipHeader)
		for _, p := range skipped.SortedPaths() {
			parts.WriteString(fmt.Sprintf("- %s :: %s\n", p, skipped[p]))
		}
		parts.WriteString("\n")
	}

	parts.WriteString("\n")

	for _, path := range state.Files {
		body, ok := state.Contents[path]
		if !ok {
			continue
		}
		parts.WriteString(fmt.Sprintf(fileHeaderFmt, path))
		parts.WriteString(body)
		// Marker lines must never concatenate with file content.
		if body != "" && !strings.HasSuffix(body, "\n") {
			parts.WriteString("\n")
		}
		parts.WriteString(fmt.Sprintf(fileFooterFmt, path))
		parts.WriteString(sectionGap)
	}

	return parts.String()
}

// WriteBundle overwrites the bundle file atomically.
func WriteBundle(path string, text string) error {
	return atomicWriteFile(path, []byte(text))
}
