package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry is one candidate page file found under the scan root.
type Entry struct {
	// Abs is the cleaned absolute path.
	Abs string
	// Rel is the path relative to the scan root, always '/'-separated.
	Rel string
	// Dirs holds the directory segments between the root and the file.
	Dirs []string
	// Stem is the file name without its accepted extension.
	Stem string
}

// Index walks a root directory and filters files by extension and exclusion globs.
type Index struct {
	root       string
	extensions []string
	exclude    []string
}

// NewIndex validates the exclusion patterns and returns an Index rooted at root.
// Extensions are matched longest first so compound extensions like ".page.vue" win over ".vue".
func NewIndex(root string, extensions, exclude []string) (*Index, error) {
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	exts := append([]string(nil), extensions...)
	sort.SliceStable(exts, func(i, j int) bool { return len(exts[i]) > len(exts[j]) })

	return &Index{
		root:       filepath.Clean(root),
		extensions: exts,
		exclude:    append([]string(nil), exclude...),
	}, nil
}

// Root returns the cleaned scan root.
func (ix *Index) Root() string { return ix.root }

// Walk returns every accepted file under the root, sorted by relative path.
// A missing root yields no entries and no error.
func (ix *Index) Walk(ctx context.Context) ([]Entry, error) {
	if _, err := os.Stat(ix.root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			// skip junk
			if path != ix.root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if e, ok := ix.entry(path); ok {
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Rel < entries[j].Rel })
	return entries, nil
}

// Matches reports whether an absolute path would be part of a Walk result:
// inside the root, with an accepted extension, and not excluded.
func (ix *Index) Matches(path string) bool {
	_, ok := ix.entry(path)
	return ok
}

// Covers reports whether path lies below the root outside of skipped
// directories. Unlike Matches it accepts directories and any extension.
func (ix *Index) Covers(path string) bool {
	rel, err := filepath.Rel(ix.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDir(seg) {
			return false
		}
	}
	return true
}

func (ix *Index) entry(path string) (Entry, bool) {
	abs := filepath.Clean(path)
	rel, err := filepath.Rel(ix.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Entry{}, false
	}
	rel = filepath.ToSlash(rel)

	ext := ix.extensionOf(rel)
	if ext == "" {
		return Entry{}, false
	}
	if ix.excluded(rel) {
		return Entry{}, false
	}

	segments := strings.Split(strings.TrimSuffix(rel, ext), "/")
	stem := segments[len(segments)-1]
	if stem == "" {
		return Entry{}, false
	}
	for _, dir := range segments[:len(segments)-1] {
		if skipDir(dir) {
			return Entry{}, false
		}
	}
	return Entry{
		Abs:  abs,
		Rel:  rel,
		Dirs: segments[:len(segments)-1],
		Stem: stem,
	}, true
}

func (ix *Index) extensionOf(rel string) string {
	for _, ext := range ix.extensions {
		if strings.HasSuffix(rel, ext) {
			return ext
		}
	}
	return ""
}

func (ix *Index) excluded(rel string) bool {
	for _, p := range ix.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
