package settings

import (
	"errors"
	"fmt"

	"github.com/dshills/spelld/internal/settings/loader"
)

// Errors returned by persistence operations.
var (
	// ErrUpdateNotSupported indicates a mutation was attempted on a
	// configuration format that can be read but not written back.
	ErrUpdateNotSupported = errors.New("config file format does not support updates")

	// ErrUnsupportedDictionaryFormat indicates the dictionary target path
	// has a missing or unrecognized extension.
	ErrUnsupportedDictionaryFormat = errors.New("unsupported dictionary format")
)

// ParseError reports malformed configuration content. It is the loader
// package's type re-exported here so the whole persistence error taxonomy
// is visible in one place.
type ParseError = loader.ParseError

// WriteError reports an I/O failure writing a configuration or dictionary
// file. The message includes the underlying cause.
type WriteError struct {
	// Path is the file that could not be written.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// UpdateUnsupportedError reports a mutation attempt on a configuration
// file whose format does not support programmatic updates.
type UpdateUnsupportedError struct {
	// Path is the mutation target.
	Path string
}

// Error implements the error interface.
func (e *UpdateUnsupportedError) Error() string {
	return fmt.Sprintf("updating the config file is not supported for %s", e.Path)
}

// Is implements error matching against ErrUpdateNotSupported.
func (e *UpdateUnsupportedError) Is(target error) bool {
	return target == ErrUpdateNotSupported
}

// DictionaryFormatError reports a dictionary target whose extension is
// missing or not a recognized dictionary text format.
type DictionaryFormatError struct {
	// Path is the dictionary target.
	Path string
}

// Error implements the error interface.
func (e *DictionaryFormatError) Error() string {
	return fmt.Sprintf("unsupported format for dictionary file %s", e.Path)
}

// Is implements error matching against ErrUnsupportedDictionaryFormat.
func (e *DictionaryFormatError) Is(target error) bool {
	return target == ErrUnsupportedDictionaryFormat
}
