package loader

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// listFiles walks root and returns the relative-sorted absolute paths of
// files matching the include patterns and not matching any exclude
// pattern. Excluded directory subtrees are pruned during the walk.
func (l *Loader) listFiles(root string, includes, excludes []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(fullPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, fullPath)
		if err != nil {
			return err
		}
		slashPath := filepath.ToSlash(relPath)

		if entry.IsDir() {
			if relPath != "." && excludesDir(excludes, slashPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if !matchesAny(includes, slashPath) {
			return nil
		}
		if matchesAny(excludes, slashPath) {
			return nil
		}

		files = append(files, fullPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// matchesAny reports whether slashPath matches any pattern, either as a
// subtree pattern ("**/bin/**"), a basename glob, or a relative-path glob.
func matchesAny(patterns []string, slashPath string) bool {
	base := path.Base(slashPath)
	for _, pattern := range patterns {
		if matchPattern(pattern, slashPath, base) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, slashPath, base string) bool {
	if strings.Contains(pattern, "**") {
		inner := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		return containsSegment(slashPath, inner)
	}
	if matched, err := path.Match(pattern, base); err == nil && matched {
		return true
	}
	if matched, err := path.Match(pattern, slashPath); err == nil && matched {
		return true
	}
	return false
}

// excludesDir reports whether a directory's subtree is fully excluded,
// which lets the walk skip it entirely.
func excludesDir(excludes []string, slashPath string) bool {
	for _, pattern := range excludes {
		if !strings.Contains(pattern, "**") {
			continue
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		if containsSegment(slashPath, inner) {
			return true
		}
	}
	return false
}

// containsSegment reports whether slashPath contains segment as a whole
// path component (or component run, for segments like "wwwroot/lib").
func containsSegment(slashPath, segment string) bool {
	if segment == "" {
		return false
	}
	return slashPath == segment ||
		strings.HasPrefix(slashPath, segment+"/") ||
		strings.HasSuffix(slashPath, "/"+segment) ||
		strings.Contains(slashPath, "/"+segment+"/")
}
