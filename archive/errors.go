package archive

import "errors"

var (
	// ErrClosed is returned by every operation on a closed Store.
	ErrClosed = errors.New("archive store is closed")
	// ErrInvalidLocator is returned for locators that are empty, absolute,
	// or would escape the store root.
	ErrInvalidLocator = errors.New("invalid locator")
)
