package resolve

import (
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultExcludePatterns are URI globs never validated: tool-owned
// schemes and generated artifacts.
var DefaultExcludePatterns = []string{
	"debug:*",
	"debug:/**",
	"vscode:/**",
	"private:/**",
	"markdown:/**",
	"git-index:/**",
	"output:/**",
	"**/*.rendered",
	"__pycache__/**",
}

// excludePattern is one compiled exclusion glob.
type excludePattern struct {
	original string
	pattern  string
	negation bool // pattern starts with !
	rooted   bool // pattern starts with /
}

// ExclusionSet holds the compiled exclusion globs of one settings
// generation. It is immutable once built; a new generation compiles a
// fresh set.
type ExclusionSet struct {
	patterns []excludePattern
}

// NewExclusionSet compiles glob patterns into an ExclusionSet. Blank
// entries and comment lines are skipped.
func NewExclusionSet(patterns []string) *ExclusionSet {
	s := &ExclusionSet{patterns: make([]excludePattern, 0, len(patterns))}
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		p := excludePattern{original: raw}
		pattern := raw
		if strings.HasPrefix(pattern, "!") {
			p.negation = true
			pattern = pattern[1:]
		}
		pattern = strings.TrimSuffix(pattern, "/")
		if strings.HasPrefix(pattern, "/") {
			p.rooted = true
			pattern = pattern[1:]
		}
		p.pattern = pattern
		s.patterns = append(s.patterns, p)
	}
	return s
}

// Patterns returns the original pattern strings in evaluation order.
func (s *ExclusionSet) Patterns() []string {
	out := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.original
	}
	return out
}

// MatchURI reports whether the document uri is excluded, matching its
// logical path against the compiled globs.
func (s *ExclusionSet) MatchURI(uri string) bool {
	return s.Match(LogicalPath(uri))
}

// Match reports whether path is excluded. Patterns are evaluated in
// order; a later negation pattern can re-include a path an earlier
// pattern excluded.
func (s *ExclusionSet) Match(path string) bool {
	path = filepath.ToSlash(path)
	excluded := false
	for _, p := range s.patterns {
		if matchPattern(p, path) {
			excluded = !p.negation
		}
	}
	return excluded
}

// LogicalPath returns the match target for uri: the filesystem path for
// file scheme URIs, the scheme-qualified form for other schemes, and
// the input itself when it is a plain path.
func LogicalPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return filepath.ToSlash(uri)
	}
	if u.Scheme == "file" {
		if p, uerr := url.PathUnescape(u.Path); uerr == nil {
			return p
		}
		return u.Path
	}
	// Keep the scheme so globs like vscode:/** can match.
	if u.Opaque != "" {
		return u.Scheme + ":" + u.Opaque
	}
	return u.Scheme + ":" + u.Path
}

// matchPattern checks a path against a single compiled pattern.
func matchPattern(p excludePattern, path string) bool {
	pattern := p.pattern

	if strings.Contains(pattern, "**") {
		return matchDoubleGlob(pattern, path)
	}

	// Rooted patterns only match at the first path component.
	if p.rooted {
		if strings.Contains(pattern, "/") {
			return matchGlob(pattern, strings.TrimPrefix(path, "/"))
		}
		parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
		if len(parts) > 0 {
			return matchGlob(pattern, parts[0])
		}
		return false
	}

	if matchGlob(pattern, path) {
		return true
	}
	if !strings.Contains(pattern, "/") {
		return matchGlob(pattern, filepath.Base(path))
	}
	// Patterns with separators can match any path suffix.
	parts := strings.Split(path, "/")
	for i := range parts {
		if matchGlob(pattern, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

// matchGlob matches pattern against path with glob syntax, falling back
// to the basename for separator-free patterns.
func matchGlob(pattern, path string) bool {
	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}
	return false
}

// matchDoubleGlob handles patterns containing **, which crosses path
// component boundaries.
func matchDoubleGlob(pattern, path string) bool {
	pathParts := strings.Split(path, "/")

	if strings.HasPrefix(pattern, "**/") {
		rest := strings.TrimPrefix(pattern, "**/")

		if strings.HasSuffix(rest, "/**") {
			// **/name/** matches any path with a component like name.
			middle := strings.TrimSuffix(rest, "/**")
			for _, part := range pathParts {
				if matchGlob(middle, part) {
					return true
				}
			}
			return false
		}

		if strings.HasSuffix(rest, "/*") {
			// **/name/* needs name as a non-final component.
			middle := strings.TrimSuffix(rest, "/*")
			for i, part := range pathParts {
				if i < len(pathParts)-1 && matchGlob(middle, part) {
					return true
				}
			}
			return false
		}

		// **/name matches name anywhere in the path.
		for i := range pathParts {
			if matchGlob(rest, strings.Join(pathParts[i:], "/")) {
				return true
			}
			if !strings.Contains(rest, "/") && matchGlob(rest, pathParts[i]) {
				return true
			}
		}
		return false
	}

	// prefix/**/suffix and prefix/** forms.
	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return matchGlob(pattern, path)
	}
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" && !strings.HasPrefix(path, prefix) {
		return false
	}
	if suffix == "" {
		return true
	}
	if strings.HasSuffix(path, suffix) {
		return true
	}
	for i := range pathParts {
		if matchGlob(suffix, strings.Join(pathParts[i:], "/")) {
			return true
		}
	}
	return false
}
