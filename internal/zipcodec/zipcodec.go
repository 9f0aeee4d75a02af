// Package zipcodec packs and unpacks directory trees as zip archives.
//
// Entry names always use '/' separators regardless of host path
// conventions. Deflate runs through the klauspost/compress implementation.
// Extraction rejects entries that would escape the destination directory
// and reports per-entry events to an injected logger rather than a
// process-wide one.
package zipcodec

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Codec is a zip implementation of the archive codec contract.
type Codec struct {
	logger *slog.Logger
}

// New creates a zip codec reporting extraction events to logger.
// A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{logger: logger}
}

// Extract unpacks a zip archive byte stream into dir, creating parent
// directories per entry.
func (c *Codec) Extract(r io.ReaderAt, size int64, dir string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("failed to read zip archive: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	for _, f := range zr.File {
		if err := c.extractEntry(f, dir); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) extractEntry(f *zip.File, dir string) error {
	name, err := entryPath(f.Name)
	if err != nil {
		return err
	}
	dest := filepath.Join(dir, filepath.FromSlash(name))
	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", name, err)
		}
		return nil
	}
	c.logger.Debug("extracting zip entry", "name", name, "size", f.UncompressedSize64)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories for %q: %w", name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to extract %q: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish %q: %w", name, err)
	}
	return nil
}

// entryPath validates an archive entry name, rejecting absolute paths and
// traversal outside the extraction root (zip slip).
func entryPath(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if cleaned == "." {
		return "", fmt.Errorf("empty zip entry name %q", name)
	}
	if strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("zip entry %q escapes extraction root", name)
	}
	return cleaned, nil
}

// Pack serializes the tree rooted at dir into w as a zip archive. Only
// regular files are written; directories exist implicitly through entry
// paths.
func (c *Codec) Pack(dir string, w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		if info, err := d.Info(); err == nil {
			hdr.Modified = info.ModTime()
		}
		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to create zip entry %q: %w", name, err)
		}
		in, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open %q: %w", name, err)
		}
		defer in.Close()
		if _, err := io.Copy(entry, in); err != nil {
			return fmt.Errorf("failed to write zip entry %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zip archive: %w", err)
	}
	return nil
}
