package settings

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestReadSettingsMissingFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cspell.json")

	first, err := ReadSettings(nil, path)
	if err != nil {
		t.Fatalf("ReadSettings() error: %v", err)
	}
	second, err := ReadSettings(nil, path)
	if err != nil {
		t.Fatalf("ReadSettings() error: %v", err)
	}

	if !first.IsDefault() {
		t.Error("ReadSettings() on missing file is not marked default")
	}
	if first != second {
		t.Error("ReadSettings() on missing file returned different instances")
	}
}

func TestReadRawConfigMissingFile(t *testing.T) {
	doc, err := ReadRawConfig(nil, filepath.Join(t.TempDir(), "cspell.json"))
	if err != nil {
		t.Fatalf("ReadRawConfig() error: %v", err)
	}
	if doc != nil {
		t.Errorf("ReadRawConfig() = %+v, want nil for missing file", doc)
	}
}

func TestReadRawConfigParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cspell.json")
	if err := os.WriteFile(path, []byte(`{"words": [`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadRawConfig(nil, path)
	if err == nil {
		t.Fatal("ReadRawConfig() succeeded on malformed content")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("error is %T, want *ParseError", err)
	}
}

func TestReadSettingsDecodesTypedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cspell.json")
	content := `{
		"version": "0.2",
		"enabled": true,
		"words": ["spelld"],
		"enabledLanguageIds": ["go", "markdown"],
		"spellCheckDelayMs": 120,
		"maxNumberOfProblems": 42
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := ReadSettings(nil, path)
	if err != nil {
		t.Fatalf("ReadSettings() error: %v", err)
	}
	if doc.Enabled == nil || !*doc.Enabled {
		t.Error("enabled not decoded as true")
	}
	if doc.SpellCheckDelayMs == nil || *doc.SpellCheckDelayMs != 120 {
		t.Errorf("spellCheckDelayMs = %v, want 120", doc.SpellCheckDelayMs)
	}
	if doc.MaxNumberOfProblems == nil || *doc.MaxNumberOfProblems != 42 {
		t.Errorf("maxNumberOfProblems = %v, want 42", doc.MaxNumberOfProblems)
	}
	if !reflect.DeepEqual(doc.EnabledLanguageIDs, []string{"go", "markdown"}) {
		t.Errorf("enabledLanguageIds = %v", doc.EnabledLanguageIDs)
	}
	if doc.IsDefault() {
		t.Error("document read from disk is marked default")
	}
}

func TestWriteSettingsRoundTrip(t *testing.T) {
	doc := &Document{
		Version:            "0.2",
		Enabled:            boolPtr(true),
		Words:              []string{"hunspell", "spelld"},
		IgnoreWords:        []string{"teh"},
		EnabledLanguageIDs: []string{"go"},
		SpellCheckDelayMs:  intPtr(75),
	}

	for _, name := range []string{"cspell.json", "cspell.jsonc", "cspell.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := WriteSettings(path, doc); err != nil {
				t.Fatalf("WriteSettings() error: %v", err)
			}
			got, err := ReadSettings(nil, path)
			if err != nil {
				t.Fatalf("ReadSettings() error: %v", err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Errorf("round trip = %+v, want %+v", got, doc)
			}
		})
	}
}

func TestWriteSettingsUnsupportedFormat(t *testing.T) {
	doc := &Document{Words: []string{"w"}}
	for _, name := range []string{"cspell.config.js", "cspell.lua", "cspell.toml", "cspell"} {
		t.Run(name, func(t *testing.T) {
			err := WriteSettings(filepath.Join(t.TempDir(), name), doc)
			if !errors.Is(err, ErrUpdateNotSupported) {
				t.Errorf("WriteSettings() error = %v, want ErrUpdateNotSupported", err)
			}
		})
	}
}

func TestIsUpdateSupportedForFormat(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"cspell.json", true},
		{"cspell.jsonc", true},
		{"file:///p/cspell.json?version=2", true},
		{"file:///p/cspell.jsonc#frag", true},
		{"cspell.yml", false},
		{"cspell.yaml", false},
		{"cspell.config.js", false},
		{"cspell.config.cjs", false},
		{"cspell.config.mjs", false},
		{"cspell.toml", false},
		{"cspell", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := IsUpdateSupportedForFormat(tt.target); got != tt.want {
				t.Errorf("IsUpdateSupportedForFormat(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestReadAndApplyUpdateRejectsUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()

	existing := filepath.Join(dir, "cspell.config.js")
	original := []byte(`module.exports = { words: ["keep"] };`)
	if err := os.WriteFile(existing, original, 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{existing, filepath.Join(dir, "missing.yaml")} {
		_, err := ReadAndApplyUpdate(nil, path, func(doc *Document) *Document {
			return AddWords(doc, []string{"nope"})
		})
		if err == nil {
			t.Fatalf("ReadAndApplyUpdate(%q) succeeded, want unsupported-format error", path)
		}
		var ue *UpdateUnsupportedError
		if !errors.As(err, &ue) {
			t.Errorf("error is %T, want *UpdateUnsupportedError", err)
		} else if ue.Path != path {
			t.Errorf("error path = %q, want %q", ue.Path, path)
		}
		if !errors.Is(err, ErrUpdateNotSupported) {
			t.Error("error does not match ErrUpdateNotSupported")
		}
		if !strings.Contains(err.Error(), path) {
			t.Errorf("error message %q does not name the target", err)
		}
	}

	// The rejected update must leave the file untouched.
	after, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(original) {
		t.Error("rejected update modified the target file")
	}
}

func TestReadAndApplyUpdateCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cspell.json")

	got, err := AddWordsToSettingsAndUpdate(nil, path, []string{"banana", "apple", "banana"})
	if err != nil {
		t.Fatalf("AddWordsToSettingsAndUpdate() error: %v", err)
	}
	if !reflect.DeepEqual(got.Words, []string{"banana", "apple"}) {
		t.Errorf("returned words = %v", got.Words)
	}
	if got.Version != CurrentConfigVersion {
		t.Errorf("returned version = %q, want %q", got.Version, CurrentConfigVersion)
	}

	onDisk, err := ReadSettings(nil, path)
	if err != nil {
		t.Fatalf("ReadSettings() error: %v", err)
	}
	if !reflect.DeepEqual(onDisk, got) {
		t.Errorf("on disk = %+v, want %+v", onDisk, got)
	}
	if onDisk.IsDefault() {
		t.Error("persisted document reads back as the default instance")
	}
}

func TestReadAndApplyUpdatePreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cspell.json")
	content := `{
	"$schema": "https://example.com/cspell.schema.json",
	"words": ["alpha"],
	"overrides": [{"filename": "**/*.md", "languageId": "markdown"}],
	"version": "0.2"
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := AddWordsToSettingsAndUpdate(nil, path, []string{"beta"}); err != nil {
		t.Fatalf("AddWordsToSettingsAndUpdate() error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(raw, "$schema").String(); got != "https://example.com/cspell.schema.json" {
		t.Errorf("$schema = %q, unknown field not preserved", got)
	}
	if got := gjson.GetBytes(raw, "overrides.0.languageId").String(); got != "markdown" {
		t.Errorf("overrides not preserved: %s", raw)
	}
	var words []string
	for _, w := range gjson.GetBytes(raw, "words").Array() {
		words = append(words, w.String())
	}
	if !reflect.DeepEqual(words, []string{"alpha", "beta"}) {
		t.Errorf("words = %v, want [alpha beta]", words)
	}
	// Existing keys keep their relative order.
	text := string(raw)
	if strings.Index(text, `"$schema"`) > strings.Index(text, `"words"`) {
		t.Error("update reordered existing keys")
	}
}

func TestReadAndApplyUpdateClearsRemovedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cspell.json")
	if err := os.WriteFile(path, []byte(`{"words": ["only"], "version": "0.2"}`), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAndApplyUpdate(nil, path, func(doc *Document) *Document {
		return RemoveWords(doc, []string{"ONLY"})
	})
	if err != nil {
		t.Fatalf("ReadAndApplyUpdate() error: %v", err)
	}
	if got.Words != nil {
		t.Errorf("returned words = %v, want unset", got.Words)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(raw, "words").Exists() {
		t.Errorf("emptied words field still present: %s", raw)
	}
}

func TestReadAndApplyUpdateJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cspell.jsonc")
	content := `{
	// project words
	"words": ["alpha",],
	"language": "en",
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := AddIgnoreWordsToSettingsAndUpdate(nil, path, []string{"teh"})
	if err != nil {
		t.Fatalf("AddIgnoreWordsToSettingsAndUpdate() error: %v", err)
	}
	if !reflect.DeepEqual(got.IgnoreWords, []string{"teh"}) {
		t.Errorf("ignoreWords = %v", got.IgnoreWords)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(raw, "language").String(); got != "en" {
		t.Errorf("unmanaged key lost across jsonc update: %s", raw)
	}
	if got := gjson.GetBytes(raw, "words.0").String(); got != "alpha" {
		t.Errorf("existing words lost across jsonc update: %s", raw)
	}
}
