// Package loader provides configuration file loading for spelld.
//
// The loader package parses spell-checker configuration files in the
// supported formats (JSON, JSONC, YAML, TOML, JavaScript, Lua) into plain
// maps. It knows nothing about the settings schema; decoding a parsed map
// into a typed document is the settings package's job.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Format identifies a supported configuration file format.
type Format int

const (
	// FormatUnknown means the path suffix is not a recognized config format.
	FormatUnknown Format = iota
	// FormatJSON is plain JSON (.json).
	FormatJSON
	// FormatJSONC is JSON with comments and trailing commas (.jsonc).
	FormatJSONC
	// FormatYAML is YAML (.yaml, .yml).
	FormatYAML
	// FormatTOML is TOML (.toml).
	FormatTOML
	// FormatJS is a CommonJS module (.js, .cjs).
	FormatJS
	// FormatMJS is an ES module with a default export (.mjs).
	FormatMJS
	// FormatLua is a Lua chunk returning a table (.lua).
	FormatLua
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatJSONC:
		return "jsonc"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatJS:
		return "javascript"
	case FormatMJS:
		return "javascript/esm"
	case FormatLua:
		return "lua"
	default:
		return "unknown"
	}
}

// Ext returns the lower-cased file suffix of target with any URI query
// string or fragment stripped first, so "cspell.json?v=2#frag" classifies
// the same as "cspell.json".
func Ext(target string) string {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	return strings.ToLower(path.Ext(target))
}

// DetectFormat classifies target by its file suffix.
func DetectFormat(target string) Format {
	switch Ext(target) {
	case ".json":
		return FormatJSON
	case ".jsonc":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".js", ".cjs":
		return FormatJS
	case ".mjs":
		return FormatMJS
	case ".lua":
		return FormatLua
	default:
		return FormatUnknown
	}
}

// Supported reports whether target has a recognized configuration suffix.
func Supported(target string) bool {
	return DetectFormat(target) != FormatUnknown
}

// FileSystem is an abstraction for read-side file system operations.
// It allows tests to substitute an in-memory file system.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system implementation.
func DefaultFS() FileSystem {
	return OSFS{}
}

// Load reads and parses the configuration file at path.
// Returns nil, nil when the file does not exist (absence is not an error).
// Returns a *ParseError when the content cannot be parsed in its declared
// format, or a plain error for an unrecognized suffix.
func Load(fsys FileSystem, path string) (map[string]any, error) {
	if fsys == nil {
		fsys = DefaultFS()
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return Parse(format, path, data)
}

// Parse parses data in the given format. The source string is used in
// error messages only.
func Parse(format Format, source string, data []byte) (map[string]any, error) {
	switch format {
	case FormatJSON:
		return parseJSON(source, data)
	case FormatJSONC:
		return parseJSONC(source, data)
	case FormatYAML:
		return parseYAML(source, data)
	case FormatTOML:
		return parseTOML(source, data)
	case FormatJS:
		return evalJS(source, data)
	case FormatMJS:
		return evalMJS(source, data)
	case FormatLua:
		return evalLua(source, data)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", source)
	}
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Format  Format
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s (%s): %s", e.Path, e.Format, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// newParseError builds a ParseError for source in the given format.
func newParseError(format Format, source string, err error) *ParseError {
	return &ParseError{
		Path:    source,
		Format:  format,
		Message: err.Error(),
		Err:     err,
	}
}
