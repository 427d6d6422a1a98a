// Package scanner computes the acquisition inventory: the ordered,
// deduplicated list of relative file paths a session works through.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codebundle/config"
)

// Inventory is the result of a scan. Files are POSIX-style paths relative
// to Root, sorted and deduplicated; their order defines both the session
// order and the bundle emission order.
type Inventory struct {
	ScanRoots []string // absolute scan roots, order preserved
	Root      string   // common root all Files are relative to
	Files     []string
}

// NormalizeRoots resolves raw root paths to absolute form and deduplicates
// them while preserving first-seen order.
func NormalizeRoots(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out
}

// CommonRoot computes the directory all relative paths are anchored to.
// A single file root anchors to its directory; multiple roots anchor to
// their longest common path.
func CommonRoot(rootsAbs []string) string {
	if len(rootsAbs) == 0 {
		cwd, _ := os.Getwd()
		return cwd
	}
	if len(rootsAbs) == 1 {
		if info, err := os.Stat(rootsAbs[0]); err == nil && !info.IsDir() {
			return filepath.Dir(rootsAbs[0])
		}
		return rootsAbs[0]
	}
	return commonPath(rootsAbs)
}

// Scan walks the roots and returns the inventory. excludeFiles lists base
// names that must never be collected (the bundle and checkpoint outputs).
func Scan(rootsAbs []string, cfg config.ScanConfig, excludeFiles []string) (*Inventory, error) {
	root := CommonRoot(rootsAbs)

	allowedExts := toSet(cfg.AllowedExtensions)
	excludeDirs := toSet(cfg.ExcludeDirs)
	excluded := toSet(excludeFiles)

	allowFile := func(path string) bool {
		name := filepath.Base(path)
		if excluded[name] {
			return false
		}
		// Temp files from interrupted atomic writes.
		if strings.Contains(name, ".tmp.") {
			return false
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		return ext != "" && allowedExts[ext]
	}

	found := make(map[string]bool)
	add := func(abs string) {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return
		}
		found[filepath.ToSlash(rel)] = true
	}

	for _, base := range rootsAbs {
		info, err := os.Stat(base)
		if err != nil {
			continue // missing roots are skipped, not fatal
		}

		if !info.IsDir() {
			if allowFile(base) {
				add(base)
			}
			continue
		}

		walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			if d.IsDir() {
				if path != base && excludeDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if allowFile(path) {
				add(path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	files := make([]string, 0, len(found))
	for f := range found {
		files = append(files, f)
	}
	sort.Strings(files)

	return &Inventory{ScanRoots: rootsAbs, Root: root, Files: files}, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

// commonPath returns the longest common ancestor directory of the paths.
func commonPath(paths []string) string {
	split := func(p string) []string {
		return strings.Split(filepath.Clean(p), string(filepath.Separator))
	}

	common := split(paths[0])
	for _, p := range paths[1:] {
		parts := split(p)
		n := len(common)
		if len(parts) < n {
			n = len(parts)
		}
		i := 0
		for i < n && common[i] == parts[i] {
			i++
		}
		common = common[:i]
	}

	joined := strings.Join(common, string(filepath.Separator))
	if joined == "" {
		return string(filepath.Separator)
	}
	return joined
}
