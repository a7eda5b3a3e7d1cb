// Package settings implements the spell-checker configuration persistence
// layer: the configuration document model, pure merge and word-list
// mutation operations, reading and writing configuration files in several
// formats, targeted updates of JSON configuration files, and custom
// dictionary file maintenance.
//
// # Document Model
//
// A Document is a parsed configuration object. Every field is optional; a
// nil slice or nil pointer means "unset" and is omitted when serialized.
// Documents are never mutated in place: merge, add, and remove operations
// return a new Document and leave their inputs untouched.
//
// Reading a path that has no file yields the process-wide default document
// (DefaultDocument), a single shared instance marked with IsDefault so
// callers can cheaply detect "no configuration on disk".
//
// # Persistence
//
// Configuration can be read from JSON, JSONC, YAML, TOML, JavaScript, and
// Lua files (see the loader subpackage), but programmatic mutation is only
// supported for .json and .jsonc targets. ReadAndApplyUpdate edits the
// original file bytes field by field, so unknown keys and key order in a
// hand-maintained file survive an update.
//
// Custom dictionaries are plain text files, one word per line. Adding
// words rewrites the file atomically as the sorted union of the old and
// new words.
//
// # Errors
//
// Failures are reported through the types in errors.go: ParseError for
// malformed content, WriteError for I/O failures, UpdateUnsupportedError
// for mutation of a non-updatable format, and DictionaryFormatError for an
// unrecognized dictionary target. The format errors match the package
// sentinels under errors.Is; ParseError and WriteError unwrap to their
// underlying cause.
package settings
