// Backend abstraction over the private working directory.

package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Backend is the raw storage a Store drives, addressed by cleaned
// slash-separated relative paths. Implementations do no locking and no
// locator validation; the Store wrapper owns both, so shared logic like
// create-on-miss lives in one place instead of per backend.
type Backend interface {
	// ReadFile returns the resource contents. Absent resources report an
	// error satisfying errors.Is(err, fs.ErrNotExist).
	ReadFile(rel string) ([]byte, error)
	// WriteFile creates or replaces a resource, creating parent
	// directories as needed.
	WriteFile(rel string, data []byte) error
	// Exists reports whether a resource (file or directory) is present.
	Exists(rel string) (bool, error)
	// Remove deletes a resource or directory tree, reporting whether it
	// previously existed.
	Remove(rel string) (bool, error)
	// List enumerates resource locators under prefix. A missing prefix
	// yields an empty result, not an error.
	List(prefix string, includeDirs, recursive bool) ([]string, error)
	// Root is the working directory an archive Codec packs from and
	// extracts into.
	Root() string
	// Destroy recursively deletes the working directory. Missing files
	// are not an error.
	Destroy() error
}

// dirBackend stores resources directly in a private directory tree.
type dirBackend struct {
	dir string
}

func (b *dirBackend) path(rel string) string {
	return filepath.Join(b.dir, filepath.FromSlash(rel))
}

func (b *dirBackend) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(b.path(rel))
}

func (b *dirBackend) WriteFile(rel string, data []byte) error {
	p := b.path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories for %q: %w", rel, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", rel, err)
	}
	return nil
}

func (b *dirBackend) Exists(rel string) (bool, error) {
	if _, err := os.Stat(b.path(rel)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *dirBackend) Remove(rel string) (bool, error) {
	p := b.path(rel)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(p); err != nil {
		return true, fmt.Errorf("failed to remove %q: %w", rel, err)
	}
	return true, nil
}

func (b *dirBackend) List(prefix string, includeDirs, recursive bool) ([]string, error) {
	start := b.path(prefix)
	if recursive {
		var out []string
		err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if p == start {
				return nil
			}
			if d.IsDir() && !includeDirs {
				return nil
			}
			rel, err := filepath.Rel(b.dir, p)
			if err != nil {
				return err
			}
			out = append(out, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	entries, err := os.ReadDir(start)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !includeDirs {
			continue
		}
		out = append(out, path.Join(prefix, e.Name()))
	}
	return out, nil
}

func (b *dirBackend) Root() string {
	return b.dir
}

func (b *dirBackend) Destroy() error {
	return os.RemoveAll(b.dir)
}
