package settings

import "strings"

// AddWords returns a copy of doc with words added to its word list.
// Addition is case-sensitive: a word equal to an existing entry is
// skipped, first-occurrence order is preserved, and new words are
// appended in the order given.
func AddWords(doc *Document, words []string) *Document {
	out := cloneOrNew(doc)
	out.Words = unionStrings(out.Words, words)
	return out
}

// RemoveWords returns a copy of doc with words removed from its word
// list. Removal is case-insensitive: a removal word deletes every entry
// with the same lower-cased form. An emptied list is cleared to unset
// rather than kept as an empty list.
func RemoveWords(doc *Document, words []string) *Document {
	out := cloneOrNew(doc)
	out.Words = removeStringsFold(out.Words, words)
	return out
}

// AddIgnoreWords returns a copy of doc with words added to its ignore
// list, with the same case-sensitive de-duplication as AddWords.
func AddIgnoreWords(doc *Document, words []string) *Document {
	out := cloneOrNew(doc)
	out.IgnoreWords = unionStrings(out.IgnoreWords, words)
	return out
}

// AddLanguageIDs returns doc with ids unioned into its enabled language
// ids. When enabledByDefault is true the ids are already enabled by
// global policy and doc is returned unchanged, so redundant explicit
// overrides never accumulate in persisted files.
func AddLanguageIDs(doc *Document, ids []string, enabledByDefault bool) *Document {
	if enabledByDefault {
		return doc
	}
	out := cloneOrNew(doc)
	out.EnabledLanguageIDs = unionStrings(out.EnabledLanguageIDs, ids)
	return out
}

// RemoveLanguageIDs returns a copy of doc with ids removed from its
// enabled language ids (exact match). An emptied list is cleared to
// unset.
func RemoveLanguageIDs(doc *Document, ids []string) *Document {
	out := cloneOrNew(doc)
	out.EnabledLanguageIDs = removeStrings(out.EnabledLanguageIDs, ids)
	return out
}

// cloneOrNew copies doc, treating nil as an empty document.
func cloneOrNew(doc *Document) *Document {
	if doc == nil {
		return &Document{}
	}
	return doc.Clone()
}

// unionStrings merges additions into existing, case-sensitively skipping
// duplicates and preserving first-occurrence order. Returns existing
// unchanged when there is nothing to add.
func unionStrings(existing, additions []string) []string {
	if len(additions) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(additions))
	out := make([]string, 0, len(existing)+len(additions))
	for _, w := range existing {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	for _, w := range additions {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// removeStringsFold removes every entry of existing whose lower-cased
// form matches a lower-cased removal word. Returns nil when nothing
// remains.
func removeStringsFold(existing, removals []string) []string {
	if len(removals) == 0 {
		return existing
	}
	drop := make(map[string]struct{}, len(removals))
	for _, w := range removals {
		drop[strings.ToLower(w)] = struct{}{}
	}
	var out []string
	for _, w := range existing {
		if _, ok := drop[strings.ToLower(w)]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

// removeStrings removes every entry of existing that appears in removals,
// matching exactly. Returns nil when nothing remains.
func removeStrings(existing, removals []string) []string {
	if len(removals) == 0 {
		return existing
	}
	drop := make(map[string]struct{}, len(removals))
	for _, w := range removals {
		drop[w] = struct{}{}
	}
	var out []string
	for _, w := range existing {
		if _, ok := drop[w]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}
