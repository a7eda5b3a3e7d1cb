package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddWordsToCustomDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.txt")

	if err := AddWordsToCustomDictionary(path, []string{"delta", "alpha", "charlie"}); err != nil {
		t.Fatalf("AddWordsToCustomDictionary() error: %v", err)
	}
	if err := AddWordsToCustomDictionary(path, []string{"bravo", "alpha", "echo"}); err != nil {
		t.Fatalf("AddWordsToCustomDictionary() second call error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "alpha\nbravo\ncharlie\ndelta\necho\n"
	if string(data) != want {
		t.Errorf("dictionary content = %q, want %q", data, want)
	}
}

func TestAddWordsToCustomDictionaryKeepsExistingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.dic")
	if err := os.WriteFile(path, []byte("zebra\napple\n\napple\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := AddWordsToCustomDictionary(path, []string{"mango"}); err != nil {
		t.Fatalf("AddWordsToCustomDictionary() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "apple\nmango\nzebra\n"; got != want {
		t.Errorf("dictionary content = %q, want %q", got, want)
	}
}

func TestAddWordsToCustomDictionaryIsCaseSensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.txt")

	if err := AddWordsToCustomDictionary(path, []string{"Name", "name"}); err != nil {
		t.Fatalf("AddWordsToCustomDictionary() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "Name\nname\n"; got != want {
		t.Errorf("dictionary content = %q, want %q", got, want)
	}
}

func TestAddWordsToCustomDictionaryRejectsUnsupportedTargets(t *testing.T) {
	dir := t.TempDir()
	targets := []string{
		filepath.Join(dir, "dictionary"),
		filepath.Join(dir, "dictionary.gz"),
		filepath.Join(dir, "dictionary.json"),
	}

	for _, path := range targets {
		t.Run(filepath.Base(path), func(t *testing.T) {
			err := AddWordsToCustomDictionary(path, []string{"word"})
			if err == nil {
				t.Fatal("AddWordsToCustomDictionary() succeeded, want format error")
			}
			var fe *DictionaryFormatError
			if !errors.As(err, &fe) {
				t.Errorf("error is %T, want *DictionaryFormatError", err)
			}
			if !errors.Is(err, ErrUnsupportedDictionaryFormat) {
				t.Error("error does not match ErrUnsupportedDictionaryFormat")
			}
			if !strings.Contains(err.Error(), path) {
				t.Errorf("error message %q does not name the target", err)
			}
			if !strings.Contains(err.Error(), "unsupported format") {
				t.Errorf("error message %q does not mention the unsupported format", err)
			}
			// Rejection happens before any write.
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Error("rejected target was created on disk")
			}
		})
	}
}

func TestAddWordsToCustomDictionaryDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "words.txt")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	err := AddWordsToCustomDictionary(target, []string{"word"})
	if err == nil {
		t.Fatal("AddWordsToCustomDictionary() succeeded on a directory target")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Errorf("error message %q does not carry the underlying cause", err)
	}
}
