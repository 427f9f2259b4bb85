package loader

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker lists the files directly inside a directory that match its
// include patterns. Subdirectories are not descended into.
type Walker struct {
	includes []string
}

func NewWalker(includes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"*.txt", "*.pdf"}
	}
	return &Walker{includes: includes}
}

// Walk returns matching paths grouped by pattern, in pattern order, with
// each group sorted by name. A file matched by several patterns is listed once.
func (w *Walker) Walk(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range w.includes {
		for _, name := range names {
			if seen[name] {
				continue
			}
			matched, err := doublestar.Match(pattern, name)
			if err != nil || !matched {
				continue
			}
			seen[name] = true
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
