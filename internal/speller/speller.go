// Package speller provides the built-in word extraction and validation
// used by the server. Word lookup is backed by a spellchecker dictionary
// loaded at startup; per-document behavior (allowed words, flagged
// words, masked regions, problem caps) comes from effective settings at
// validation time. Core packages stay independent of this one: the
// server wires it in as the validator implementation.
package speller

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/f1monkey/spellchecker"

	"github.com/dshills/spelld/internal/resolve"
	"github.com/dshills/spelld/internal/schedule"
)

// Words shorter than this are never reported as unknown. Flagged words
// are reported regardless of length.
const minWordLength = 4

// DefaultMaxSuggestions caps Suggest when the caller passes no limit.
const DefaultMaxSuggestions = 8

// Speller implements the validator contract with a shared dictionary.
// Dictionary mutation and validation are safe to use concurrently.
type Speller struct {
	mu      sync.RWMutex
	checker *spellchecker.Spellchecker
}

// New creates a Speller with an empty dictionary. Callers seed it with
// AddDictionary, AddDictionaryFile, or Add before validating.
func New() (*Speller, error) {
	sc, err := spellchecker.New(
		spellchecker.DefaultAlphabet,
		spellchecker.WithMaxErrors(2),
		spellchecker.WithSplitter(bufio.ScanLines),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spellchecker: %w", err)
	}
	return &Speller{checker: sc}, nil
}

// AddDictionary merges words from r into the dictionary, one word per
// line.
func (s *Speller) AddDictionary(r io.Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checker.AddFrom(r)
}

// AddDictionaryFile merges the word-list file at path into the
// dictionary.
func (s *Speller) AddDictionaryFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer f.Close()
	s.AddDictionary(f)
	return nil
}

// Add inserts individual words into the dictionary.
func (s *Speller) Add(words ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checker.Add(words...)
}

// Validate checks text against the dictionary under eff. Flagged words
// are always reported; allowed words (words and ignoreWords) never are.
// Regions matched by the compiled ignore expressions are skipped, and
// the issue count is capped by the effective maxNumberOfProblems.
func (s *Speller) Validate(ctx context.Context, text, languageID string, eff *resolve.Effective) []schedule.Issue {
	doc := eff.Doc
	allowed := foldSet(doc.Words, doc.IgnoreWords)
	flagged := foldSet(doc.FlagWords)
	masked := maskedSpans(text, eff)
	max := eff.MaxProblems()

	var issues []schedule.Issue
	spanIdx := 0
	for _, tok := range ExtractWords(text) {
		if ctx.Err() != nil {
			return issues
		}
		if len(issues) >= max {
			break
		}
		for spanIdx < len(masked) && masked[spanIdx][1] <= tok.Start {
			spanIdx++
		}
		if spanIdx < len(masked) && masked[spanIdx][0] < tok.End {
			continue
		}

		lower := strings.ToLower(tok.Word)
		if flagged[lower] {
			issues = append(issues, schedule.Issue{
				Word:   tok.Word,
				Start:  tok.Start,
				End:    tok.End,
				RuleID: schedule.RuleFlaggedWord,
			})
			continue
		}
		if utf8.RuneCountInString(tok.Word) < minWordLength {
			continue
		}
		if allowed[lower] {
			continue
		}
		if s.known(tok.Word, lower) {
			continue
		}
		issues = append(issues, schedule.Issue{
			Word:   tok.Word,
			Start:  tok.Start,
			End:    tok.End,
			RuleID: schedule.RuleUnknownWord,
		})
	}
	return issues
}

// Suggest returns up to max replacement candidates for word, closest
// edit distance first, with the input's capitalization applied.
func (s *Speller) Suggest(word string, max int) []string {
	if max <= 0 {
		max = DefaultMaxSuggestions
	}
	lower := strings.ToLower(word)

	s.mu.RLock()
	cands, err := s.checker.Suggest(lower, max*2)
	s.mu.RUnlock()
	if err != nil || len(cands) == 0 {
		return nil
	}

	type scored struct {
		word string
		dist int
	}
	ranked := make([]scored, 0, len(cands))
	for _, c := range cands {
		if c == lower {
			continue
		}
		ranked = append(ranked, scored{word: c, dist: levenshtein.ComputeDistance(lower, c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })
	if len(ranked) > max {
		ranked = ranked[:max]
	}

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = matchCase(word, r.word)
	}
	return out
}

func (s *Speller) known(word, lower string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checker.IsCorrect(word) {
		return true
	}
	if lower != word && s.checker.IsCorrect(lower) {
		return true
	}
	// Possessive form of a known word.
	if base, ok := strings.CutSuffix(lower, "'s"); ok && s.checker.IsCorrect(base) {
		return true
	}
	return false
}

func foldSet(lists ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, list := range lists {
		for _, w := range list {
			set[strings.ToLower(w)] = true
		}
	}
	return set
}

// maskedSpans collects the byte ranges matched by the effective ignore
// expressions, sorted by start offset.
func maskedSpans(text string, eff *resolve.Effective) [][]int {
	var spans [][]int
	for _, re := range eff.IgnoreRegexps {
		spans = append(spans, re.FindAllStringIndex(text, -1)...)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	return spans
}

// matchCase transfers src's capitalization shape onto cand: all-caps
// stays all-caps, a leading capital is preserved.
func matchCase(src, cand string) string {
	if src == strings.ToUpper(src) && utf8.RuneCountInString(src) > 1 {
		return strings.ToUpper(cand)
	}
	first, _ := utf8.DecodeRuneInString(src)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(cand)
		if r != utf8.RuneError {
			return string(unicode.ToUpper(r)) + cand[size:]
		}
	}
	return cand
}
