// Image accessors. Storage format follows the locator's file extension.

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"path"
	"strings"
)

// Image returns the image stored at the locator, decoding it in the format
// inferred from the locator's extension (png when missing or unrecognized).
// If the resource is absent and create is non-nil, create is invoked once;
// a non-nil result is encoded and persisted at the locator and returned,
// while a nil result leaves the store untouched. Absent with no create
// callback yields (nil, nil).
func (s *Store) Image(locator string, create func() (image.Image, error)) (image.Image, error) {
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
	switch {
	case err == nil:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image %q: %w", locator, err)
		}
		return img, nil
	case errors.Is(err, fs.ErrNotExist):
		if create == nil {
			return nil, nil
		}
		img, err := create()
		if err != nil {
			return nil, fmt.Errorf("image %q create callback: %w", locator, err)
		}
		if img == nil {
			return nil, nil
		}
		if err := s.writeImage(rel, locator, img); err != nil {
			return nil, err
		}
		return img, nil
	default:
		return nil, fmt.Errorf("failed to read image %q: %w", locator, err)
	}
}

// SetImage encodes an image in the format inferred from the locator's
// extension and persists it, creating parent directories as needed.
func (s *Store) SetImage(locator string, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return err
	}
	return s.writeImage(rel, locator, img)
}

func (s *Store) writeImage(rel, locator string, img image.Image) error {
	data, err := encodeImage(img, imageFormat(rel))
	if err != nil {
		return fmt.Errorf("failed to encode image %q: %w", locator, err)
	}
	return s.backend.WriteFile(rel, data)
}

// imageFormat infers the storage format from the locator's extension,
// defaulting to png.
func imageFormat(locator string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(locator), ".")) {
	case "jpg", "jpeg":
		return "jpeg"
	case "gif":
		return "gif"
	default:
		return "png"
	}
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
