package utils

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"codebundle/constants/lipgloss"

	"github.com/alecthomas/chroma/v2/quick"
)

// HighlightPreview renders content with syntax highlighting guessed from
// the path's extension. When color is disabled the content passes through
// untouched.
func HighlightPreview(out io.Writer, path string, content string, theme string) error {
	if !lipgloss.ColorEnabled {
		_, err := fmt.Fprint(out, content)
		return err
	}

	language := strings.TrimPrefix(filepath.Ext(path), ".")
	if err := quick.Highlight(out, content, language, "terminal256", theme); err != nil {
		// Fall back to plain output rather than losing the preview.
		_, werr := fmt.Fprint(out, content)
		return werr
	}
	return nil
}
