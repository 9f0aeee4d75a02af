// Package archive presents a folder, optionally packaged as a zip file, as
// a typed, locator-addressed resource store.
//
// A Store owns a private working directory: Open unpacks an archive into
// it, New starts empty, Save repacks it, and Close deletes it. In between,
// typed accessors read and write properties files, images, XML documents,
// JSON data maps, and raw bytes, all behind one exclusive lock so that
// get-or-create sequences are atomic across caller goroutines.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/DrPlantabyte/ArchiveResourceManager/datamap"
	"github.com/DrPlantabyte/ArchiveResourceManager/internal/zipcodec"
)

// Store is a locator-addressed resource store over an unpacked working
// directory. It is safe for concurrent use by multiple goroutines; every
// accessor holds a single exclusive lock for the duration of the call,
// including create-on-miss read-modify-write sequences.
//
// A Store is not required to save changes on close: Save packs the current
// state to an archive, Close only tears down the working directory.
type Store struct {
	backend Backend
	codec   Codec
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

type config struct {
	codec    Codec
	logger   *slog.Logger
	tempRoot string
}

// Option configures a Store at construction time.
type Option func(*config)

// WithCodec replaces the default zip archive codec.
func WithCodec(c Codec) Option {
	return func(cfg *config) { cfg.codec = c }
}

// WithLogger sets the logger extraction and lifecycle events are reported
// to. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithTempDir sets the parent directory for the private working directory.
// Defaults to the system temp directory.
func WithTempDir(dir string) Option {
	return func(cfg *config) { cfg.tempRoot = dir }
}

func buildConfig(opts []Option) *config {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.codec == nil {
		cfg.codec = zipcodec.New(cfg.logger)
	}
	return cfg
}

// New creates an empty store with no unpack source. It only ever repacks.
func New(opts ...Option) (*Store, error) {
	cfg := buildConfig(opts)
	dir, err := os.MkdirTemp(cfg.tempRoot, "arcstore-")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	return &Store{
		backend: &dirBackend{dir: dir},
		codec:   cfg.codec,
		logger:  cfg.logger,
	}, nil
}

// Open unpacks an existing archive file into a fresh private working
// directory and returns a store over it.
func Open(archivePath string, opts ...Option) (*Store, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	return OpenReader(f, info.Size(), opts...)
}

// OpenReader is Open for an archive already available as a byte stream.
func OpenReader(r io.ReaderAt, size int64, opts ...Option) (*Store, error) {
	cfg := buildConfig(opts)
	dir, err := os.MkdirTemp(cfg.tempRoot, "arcstore-")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	if err := cfg.codec.Extract(r, size, dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to extract archive: %w", err)
	}
	return &Store{
		backend: &dirBackend{dir: dir},
		codec:   cfg.codec,
		logger:  cfg.logger,
	}, nil
}

// guard reports ErrClosed once the store is closed. Callers hold s.mu.
func (s *Store) guard() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// cleanLocator normalizes a locator to a clean slash-separated relative
// path. Absolute locators and traversal above the store root are rejected
// rather than silently resolved.
func cleanLocator(locator string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("%w: empty locator", ErrInvalidLocator)
	}
	cleaned := path.Clean(strings.ReplaceAll(locator, "\\", "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "/") || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the store root", ErrInvalidLocator, locator)
	}
	return cleaned, nil
}

// cleanPrefix is cleanLocator for List prefixes, where empty means the
// store root.
func cleanPrefix(prefix string) (string, error) {
	if prefix == "" {
		return ".", nil
	}
	return cleanLocator(prefix)
}

// Exists reports whether a resource is present at the locator.
func (s *Store) Exists(locator string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return false, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return false, err
	}
	return s.backend.Exists(rel)
}

// Delete removes the resource at the locator and reports whether it
// previously existed. Deleting an absent resource is a no-op, not an error.
func (s *Store) Delete(locator string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return false, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return false, err
	}
	return s.backend.Remove(rel)
}

// List enumerates resources whose locator begins with prefix. Directories
// are included only when includeDirs is set; recursion is optional.
// Ordering is not guaranteed stable across backends.
func (s *Store) List(prefix string, includeDirs, recursive bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	rel, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	return s.backend.List(rel, includeDirs, recursive)
}

// ReadBytes returns the raw contents of a resource, or (nil, nil) if the
// resource does not exist.
func (s *Store) ReadBytes(locator string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return nil, err
	}
	data, err := s.backend.ReadFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %q: %w", locator, err)
	}
	return data, nil
}

// WriteBytes creates or replaces a resource with raw contents, creating
// parent directories as needed.
func (s *Store) WriteBytes(locator string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return err
	}
	return s.backend.WriteFile(rel, data)
}

// ReadDataMap loads a JSON resource and converts it into a nested map via
// the datamap tagging convention. Unlike the optional accessors, a missing
// resource is an error here: the caller named a document it expects.
func (s *Store) ReadDataMap(locator string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return nil, err
	}
	data, err := s.backend.ReadFile(rel)
	if err != nil {
		return nil, fmt.Errorf("failed to read data map %q: %w", locator, err)
	}
	m, err := datamap.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("data map %q: %w", locator, err)
	}
	return m, nil
}

// WriteDataMap converts a nested map to tagged JSON and persists it at the
// locator, creating parent directories as needed.
func (s *Store) WriteDataMap(locator string, m map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return err
	}
	data, err := datamap.Marshal(m)
	if err != nil {
		return fmt.Errorf("data map %q: %w", locator, err)
	}
	return s.backend.WriteFile(rel, append(data, '\n'))
}

// Save packs the current working directory into an archive file at
// destination. It may be called any number of times and does not alter the
// store's state.
func (s *Store) Save(destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := s.codec.Pack(s.backend.Root(), f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to pack archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// SaveWriter is Save for an arbitrary byte stream destination.
func (s *Store) SaveWriter(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.codec.Pack(s.backend.Root(), w); err != nil {
		return fmt.Errorf("failed to pack archive: %w", err)
	}
	return nil
}

// Close marks the store closed and deletes the working directory and all
// of its contents. Changes not saved beforehand are lost. After Close every
// other operation fails with ErrClosed; closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("closing archive store", "dir", s.backend.Root())
	if err := s.backend.Destroy(); err != nil {
		return fmt.Errorf("failed to remove working directory: %w", err)
	}
	return nil
}
