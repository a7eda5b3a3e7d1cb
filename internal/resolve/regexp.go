package resolve

import (
	"regexp"
	"strings"
)

// CompileIgnoreRegexps compiles ignoreRegExpList entries. Each entry is
// either a bare pattern body or a /pattern/flags literal. The flags i,
// m, and s map to the matching inline flags; g and u have no meaning
// here and are dropped. A malformed entry is skipped so one bad pattern
// never disables checking.
func CompileIgnoreRegexps(list []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(list))
	for _, entry := range list {
		if re := compileIgnoreRegexp(entry); re != nil {
			out = append(out, re)
		}
	}
	return out
}

func compileIgnoreRegexp(entry string) *regexp.Regexp {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	body, flags := entry, ""
	if strings.HasPrefix(entry, "/") {
		if end := strings.LastIndex(entry, "/"); end > 0 {
			if tail := entry[end+1:]; isRegexpFlags(tail) {
				body, flags = entry[1:end], tail
			}
		}
	}
	if body == "" {
		return nil
	}

	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		}
	}
	if inline.Len() > 0 {
		body = "(?" + inline.String() + ")" + body
	}

	re, err := regexp.Compile(body)
	if err != nil {
		return nil
	}
	return re
}

// isRegexpFlags reports whether s contains only JavaScript-style regexp
// flag letters.
func isRegexpFlags(s string) bool {
	for _, r := range s {
		switch r {
		case 'g', 'i', 'm', 's', 'u', 'y':
		default:
			return false
		}
	}
	return true
}
