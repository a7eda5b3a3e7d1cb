package settings

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dshills/spelld/internal/settings/loader"
)

// dictionarySuffixes are the recognized dictionary text formats.
var dictionarySuffixes = map[string]bool{
	".txt": true,
	".dic": true,
}

// IsDictionaryPath reports whether path has a recognized dictionary text
// suffix.
func IsDictionaryPath(path string) bool {
	return dictionarySuffixes[loader.Ext(path)]
}

// AddWordsToCustomDictionary adds words to the dictionary file at path.
// The target must carry a recognized dictionary suffix; anything else,
// including a missing extension, fails with a *DictionaryFormatError
// before any I/O. A missing file is treated as empty. The file is
// rewritten atomically as the sorted, de-duplicated, case-sensitive
// union of its existing lines and words, one word per line with a
// trailing newline.
func AddWordsToCustomDictionary(path string, words []string) error {
	if !IsDictionaryPath(path) {
		return &DictionaryFormatError{Path: path}
	}
	existing, err := readDictionaryWords(path)
	if err != nil {
		return err
	}
	merged := sortedUnion(existing, words)
	content := strings.Join(merged, "\n") + "\n"
	return writeFileAtomic(path, []byte(content))
}

// readDictionaryWords reads the lines of the dictionary at path,
// trimming whitespace and dropping blanks. A missing file reads as
// empty.
func readDictionaryWords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading dictionary file %s: %w", path, err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			words = append(words, line)
		}
	}
	return words, nil
}

// sortedUnion returns the sorted, de-duplicated, case-sensitive union of
// a and b, skipping blank entries.
func sortedUnion(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, w := range a {
		if w = strings.TrimSpace(w); w != "" {
			set[w] = struct{}{}
		}
	}
	for _, w := range b {
		if w = strings.TrimSpace(w); w != "" {
			set[w] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
