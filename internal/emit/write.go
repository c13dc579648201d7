package emit

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Outcome reports what a Commit did.
type Outcome struct {
	// Fingerprint of the committed set.
	Fingerprint string
	// Unchanged is set when the fingerprint matched the previous commit and nothing was touched.
	Unchanged bool
	// Written lists the artifacts that were replaced on disk, in write order.
	Written []Artifact
}

// Paths returns the target paths of the written artifacts.
func (o Outcome) Paths() []string {
	out := make([]string, 0, len(o.Written))
	for _, a := range o.Written {
		out = append(out, a.Path)
	}
	return out
}

// Commit writes the artifacts of set that need writing. last is the fingerprint
// of the previous successful commit; when it matches, Commit performs no I/O.
//
// Routes and config are rewritten when the file on disk differs from the rendered
// content. Guards are written only if the file does not exist yet.
func Commit(set Set, last string) (Outcome, error) {
	out := Outcome{Fingerprint: set.Fingerprint()}
	if out.Fingerprint == last {
		out.Unchanged = true
		return out, nil
	}

	for _, a := range []Artifact{set.Routes, set.Config} {
		current, err := os.ReadFile(a.Path)
		if err == nil && bytes.Equal(current, a.Content) {
			continue
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return out, fmt.Errorf("read %s: %w", a.Path, err)
		}
		if err := WriteAtomic(a.Path, a.Content); err != nil {
			return out, err
		}
		out.Written = append(out.Written, a)
	}

	if _, err := os.Stat(set.Guards.Path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return out, fmt.Errorf("stat %s: %w", set.Guards.Path, err)
		}
		if err := WriteAtomic(set.Guards.Path, set.Guards.Content); err != nil {
			return out, err
		}
		out.Written = append(out.Written, set.Guards)
	}
	return out, nil
}

// WriteAtomic writes data to a temporary sibling of path and renames it into
// place, so readers see either the old content or the new one.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
