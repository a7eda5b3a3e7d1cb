package speller

import (
	"regexp"
	"unicode"
)

// Token is one checkable word extracted from text. Start and End are
// byte offsets into the original text, so compound identifiers yield one
// token per sub-word, each addressing its own slice.
type Token struct {
	Word  string
	Start int
	End   int
}

var (
	urlPattern    = regexp.MustCompile(`(?i)[a-z][a-z0-9+.-]*://[^\s<>"']+`)
	hexRunPattern = regexp.MustCompile(`^(?:0[xX])?[0-9a-fA-F]+$`)
)

// ExtractWords splits text into word tokens. Identifier-style compounds
// are split at underscores, case boundaries, and letter/digit
// boundaries, so camelCase and snake_case names yield their parts. URLs
// and hex or digit runs produce no tokens.
func ExtractWords(text string) []Token {
	urls := urlPattern.FindAllStringIndex(text, -1)

	var tokens []Token
	urlIdx := 0
	start := -1
	flushRun := func(runStart, runEnd int) {
		for urlIdx < len(urls) && urls[urlIdx][1] <= runStart {
			urlIdx++
		}
		if urlIdx < len(urls) && urls[urlIdx][0] < runEnd {
			return
		}
		tokens = append(tokens, splitRun(text, runStart, runEnd)...)
	}

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flushRun(start, i)
			start = -1
		}
	}
	if start >= 0 {
		flushRun(start, len(text))
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\''
}

const (
	classLower = iota
	classUpper
	classDigit
	classJoin
)

func runeClass(r rune) int {
	switch {
	case unicode.IsUpper(r):
		return classUpper
	case unicode.IsLower(r):
		return classLower
	case unicode.IsDigit(r):
		return classDigit
	case unicode.IsLetter(r):
		// Caseless scripts behave like lowercase.
		return classLower
	default:
		return classJoin
	}
}

// splitRun breaks one contiguous word run into sub-word tokens. Hex
// literals and digit-only runs are dropped whole.
func splitRun(text string, start, end int) []Token {
	run := text[start:end]
	if hexRunPattern.MatchString(run) && containsDigit(run) {
		return nil
	}

	var rs []rune
	var offs []int
	for i, r := range run {
		rs = append(rs, r)
		offs = append(offs, start+i)
	}
	offs = append(offs, end)

	var tokens []Token
	flush := func(lo, hi int) {
		for lo < hi && rs[lo] == '\'' {
			lo++
		}
		for hi > lo && rs[hi-1] == '\'' {
			hi--
		}
		hasLetter := false
		for k := lo; k < hi; k++ {
			if unicode.IsDigit(rs[k]) {
				// Apostrophes can bridge digits and letters; such
				// segments are not words.
				return
			}
			if unicode.IsLetter(rs[k]) {
				hasLetter = true
			}
		}
		if !hasLetter {
			return
		}
		tokens = append(tokens, Token{
			Word:  string(rs[lo:hi]),
			Start: offs[lo],
			End:   offs[hi],
		})
	}

	segStart := -1
	for k := 0; k < len(rs); k++ {
		r := rs[k]
		if r == '_' {
			if segStart >= 0 {
				flush(segStart, k)
				segStart = -1
			}
			continue
		}
		if segStart < 0 {
			segStart = k
			continue
		}
		if r == '\'' {
			continue
		}
		prev := runeClass(rs[k-1])
		cls := runeClass(r)
		switch {
		case prev == classJoin:
			// Apostrophe joins its neighbors.
		case cls == classDigit && prev != classDigit,
			cls != classDigit && prev == classDigit,
			cls == classUpper && prev == classLower:
			flush(segStart, k)
			segStart = k
		case cls == classLower && prev == classUpper:
			// Acronym followed by a word: HTTPServer -> HTTP, Server.
			if k-1 > segStart && runeClass(rs[k-2]) == classUpper {
				flush(segStart, k-1)
				segStart = k - 1
			}
		}
	}
	if segStart >= 0 {
		flush(segStart, len(rs))
	}
	return tokens
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
