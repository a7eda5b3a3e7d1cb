package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/spelld/internal/settings/loader"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// ReadRawConfig parses the configuration file at path. A missing file
// yields (nil, nil), not an error. Malformed content yields a
// *ParseError.
func ReadRawConfig(fsys loader.FileSystem, path string) (*Document, error) {
	m, err := loader.Load(fsys, path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return decodeMap(path, m)
}

// ReadSettings resolves the configuration at path. When no file exists
// it returns the shared default document (see DefaultDocument) so
// callers can detect the absence cheaply.
func ReadSettings(fsys loader.FileSystem, path string) (*Document, error) {
	doc, err := ReadRawConfig(fsys, path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return DefaultDocument(), nil
	}
	return doc, nil
}

// WriteSettings serializes doc in the format matching path's suffix and
// writes it atomically. JSON, JSONC, and YAML targets can be written;
// any other format fails with an *UpdateUnsupportedError.
func WriteSettings(path string, doc *Document) error {
	data, err := encodeDocument(path, doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// IsUpdateSupportedForFormat reports whether the configuration file at
// target supports programmatic updates. Only .json and .jsonc targets
// qualify; URI query strings and fragments are ignored when classifying
// the suffix.
func IsUpdateSupportedForFormat(target string) bool {
	switch loader.Ext(target) {
	case ".json", ".jsonc":
		return true
	default:
		return false
	}
}

// ReadAndApplyUpdate loads the configuration at path, applies transform,
// writes the result back, and returns it. It fails with an
// *UpdateUnsupportedError, before any read or write, when path is not an
// updatable format. When the file already exists the update is applied
// to the original bytes field by field, so unknown keys and key order
// survive; a failed update leaves the file untouched.
func ReadAndApplyUpdate(fsys loader.FileSystem, path string, transform func(*Document) *Document) (*Document, error) {
	if !IsUpdateSupportedForFormat(path) {
		return nil, &UpdateUnsupportedError{Path: path}
	}
	current, err := ReadSettings(fsys, path)
	if err != nil {
		return nil, err
	}
	updated := transform(current)
	if err := writeUpdatedConfig(fsys, path, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// AddWordsToSettingsAndUpdate adds words to the word list of the
// configuration file at path and returns the persisted document.
func AddWordsToSettingsAndUpdate(fsys loader.FileSystem, path string, words []string) (*Document, error) {
	return ReadAndApplyUpdate(fsys, path, func(doc *Document) *Document {
		return AddWords(doc, words)
	})
}

// AddIgnoreWordsToSettingsAndUpdate adds words to the ignore list of the
// configuration file at path and returns the persisted document.
func AddIgnoreWordsToSettingsAndUpdate(fsys loader.FileSystem, path string, words []string) (*Document, error) {
	return ReadAndApplyUpdate(fsys, path, func(doc *Document) *Document {
		return AddIgnoreWords(doc, words)
	})
}

// decodeMap converts a parsed key/value map into a Document. The JSON
// round trip normalizes the differing number and slice types the format
// loaders produce; unknown keys are ignored.
func decodeMap(path string, m map[string]any) (*Document, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, newDecodeError(path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, newDecodeError(path, err)
	}
	return &doc, nil
}

func newDecodeError(path string, err error) *ParseError {
	return &ParseError{
		Path:    path,
		Format:  loader.DetectFormat(path),
		Message: err.Error(),
		Err:     err,
	}
}

// encodeDocument serializes doc for the format matching path's suffix.
func encodeDocument(path string, doc *Document) ([]byte, error) {
	switch loader.DetectFormat(path) {
	case loader.FormatJSON, loader.FormatJSONC:
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, &WriteError{Path: path, Err: err}
		}
		return ensureTrailingNewline(pretty.Pretty(raw)), nil
	case loader.FormatYAML:
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return nil, &WriteError{Path: path, Err: err}
		}
		return ensureTrailingNewline(raw), nil
	default:
		return nil, &UpdateUnsupportedError{Path: path}
	}
}

// documentFields are the top-level configuration keys managed by
// Document, in the order new keys are appended to an updated file.
var documentFields = []string{
	"version",
	"description",
	"enabled",
	"words",
	"flagWords",
	"ignoreWords",
	"enabledLanguageIds",
	"import",
	"ignorePaths",
	"ignoreRegExpList",
	"spellCheckDelayMs",
	"maxNumberOfProblems",
}

// writeUpdatedConfig persists doc to path. A missing file is created
// from scratch; an existing file is edited field by field on its
// original bytes.
func writeUpdatedConfig(fsys loader.FileSystem, path string, doc *Document) error {
	if fsys == nil {
		fsys = loader.DefaultFS()
	}
	raw, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data, encErr := encodeDocument(path, doc)
			if encErr != nil {
				return encErr
			}
			return writeFileAtomic(path, data)
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	edited, err := applyDocumentFields(path, raw, doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, edited)
}

// applyDocumentFields carries doc's managed fields into raw, setting
// fields doc has and deleting managed fields it no longer has, while
// leaving unrecognized keys and their order alone. Comments in a JSONC
// file do not survive the edit.
func applyDocumentFields(path string, raw []byte, doc *Document) ([]byte, error) {
	work := raw
	if loader.DetectFormat(path) == loader.FormatJSONC {
		work = loader.StripComments(work)
	}
	if !gjson.ValidBytes(work) {
		return nil, newDecodeError(path, errors.New("invalid JSON content"))
	}
	if !gjson.ParseBytes(work).IsObject() {
		return nil, newDecodeError(path, errors.New("root value is not an object"))
	}

	docRaw, err := json.Marshal(doc)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	fields := gjson.ParseBytes(docRaw)
	for _, key := range documentFields {
		if val := fields.Get(key); val.Exists() {
			work, err = sjson.SetRawBytes(work, key, []byte(val.Raw))
		} else if gjson.GetBytes(work, key).Exists() {
			work, err = sjson.DeleteBytes(work, key)
		}
		if err != nil {
			return nil, &WriteError{Path: path, Err: err}
		}
	}
	return ensureTrailingNewline(pretty.Pretty(work)), nil
}

// writeFileAtomic writes data to path through a temp file and rename so
// an interrupted write never leaves a truncated file behind. The parent
// directory is created if needed.
func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func ensureTrailingNewline(data []byte) []byte {
	if len(data) == 0 || data[len(data)-1] != '\n' {
		return append(data, '\n')
	}
	return data
}
