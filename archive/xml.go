// XML document accessors over a DOM-like element tree.

package archive

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/beevik/etree"
)

// XMLDocument returns the XML document stored at the locator as an element
// tree. If the resource is absent and create is non-nil, create is invoked
// once; a non-nil result is serialized and persisted at the locator and
// returned, while a nil result leaves the store untouched. Absent with no
// create callback yields (nil, nil).
func (s *Store) XMLDocument(locator string, create func() (*etree.Document, error)) (*etree.Document, error) {
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
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return nil, fmt.Errorf("failed to parse XML %q: %w", locator, err)
		}
		return doc, nil
	case errors.Is(err, fs.ErrNotExist):
		if create == nil {
			return nil, nil
		}
		doc, err := create()
		if err != nil {
			return nil, fmt.Errorf("XML %q create callback: %w", locator, err)
		}
		if doc == nil {
			return nil, nil
		}
		if err := s.writeXML(rel, locator, doc); err != nil {
			return nil, err
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("failed to read XML %q: %w", locator, err)
	}
}

// SetXMLDocument serializes an element tree and persists it at the
// locator, creating parent directories as needed.
func (s *Store) SetXMLDocument(locator string, doc *etree.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return err
	}
	return s.writeXML(rel, locator, doc)
}

func (s *Store) writeXML(rel, locator string, doc *etree.Document) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize XML %q: %w", locator, err)
	}
	return s.backend.WriteFile(rel, data)
}
