package archive

import "io"

// Codec transforms between a directory tree and a single-file archive byte
// stream. Entry paths inside the archive use '/' separators regardless of
// host path conventions.
//
// The default is the zip codec; a Store accepts any implementation via
// WithCodec.
type Codec interface {
	// Extract unpacks an archive into dir, creating parent directories per
	// entry. Entries that would escape dir must be rejected.
	Extract(r io.ReaderAt, size int64, dir string) error
	// Pack serializes the tree rooted at dir into w.
	Pack(dir string, w io.Writer) error
}
