// Package ignore reads gitignore-style files and converts their entries
// into exclude patterns understood by the repository loader.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIgnoreFiles are the ignore files consulted at a repository root.
var DefaultIgnoreFiles = []string{".gitignore", ".ignore"}

// LoadPatterns reads the ignore files present at root and returns their
// entries converted to loader exclude patterns. Missing files are
// skipped; a root with no ignore files yields an empty slice.
func LoadPatterns(root string, ignoreFiles ...string) ([]string, error) {
	if len(ignoreFiles) == 0 {
		ignoreFiles = DefaultIgnoreFiles
	}

	var patterns []string
	for _, name := range ignoreFiles {
		filePatterns, err := parseFile(filepath.Join(root, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
	}

	return dedupe(patterns), nil
}

func parseFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if pattern := convertLine(scanner.Text()); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}

// convertLine turns one gitignore line into a loader exclude pattern.
// Comments, blank lines, and negations yield the empty string; negations
// are unsupported and dropped rather than misapplied.
func convertLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return ""
	}

	// A leading slash anchors to the root in gitignore; the loader
	// matches against relative paths, so it is simply dropped.
	line = strings.TrimPrefix(line, "/")

	// Directory entries exclude the whole subtree.
	if strings.HasSuffix(line, "/") {
		return "**/" + strings.TrimSuffix(line, "/") + "/**"
	}

	// Bare directory-looking names (no glob, no extension, no slash)
	// also exclude the subtree, matching how build and dependency
	// directories are usually listed.
	if !strings.ContainsAny(line, "*?[") && !strings.Contains(line, "/") && !strings.Contains(line, ".") {
		return "**/" + line + "/**"
	}

	// File names and globs match as-is against basename or relative path.
	return line
}

func dedupe(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	result := patterns[:0]
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}
