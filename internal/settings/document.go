package settings

// CurrentConfigVersion is the configuration schema version written into
// newly created configuration files.
const CurrentConfigVersion = "0.2"

// Document is a parsed spell-checker configuration object. All fields are
// optional; nil means unset and is omitted on serialization. Word-list
// fields are de-duplicated and case-sensitive, in stable order unless an
// operation explicitly sorts them.
//
// Documents are value-like: every mutation operation copies. Callers must
// never modify a Document reachable by someone else, in particular the
// shared instance returned by DefaultDocument.
type Document struct {
	// Version is the configuration schema version, e.g. "0.2".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Description is free-form text describing the configuration.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Enabled turns spell checking on or off. Nil means inherit.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Words are known-good words added to the dictionary.
	Words []string `json:"words,omitempty" yaml:"words,omitempty"`
	// FlagWords are always reported, even when a dictionary contains them.
	FlagWords []string `json:"flagWords,omitempty" yaml:"flagWords,omitempty"`
	// IgnoreWords are never reported but are not offered as suggestions.
	IgnoreWords []string `json:"ignoreWords,omitempty" yaml:"ignoreWords,omitempty"`
	// EnabledLanguageIDs lists the language ids to check.
	EnabledLanguageIDs []string `json:"enabledLanguageIds,omitempty" yaml:"enabledLanguageIds,omitempty"`
	// Import lists parent configuration files merged beneath this one,
	// in order.
	Import []string `json:"import,omitempty" yaml:"import,omitempty"`
	// IgnorePaths are glob patterns for files excluded from checking.
	IgnorePaths []string `json:"ignorePaths,omitempty" yaml:"ignorePaths,omitempty"`
	// IgnoreRegExpList holds patterns whose matches are skipped, each a
	// bare pattern body or a /pattern/flags literal.
	IgnoreRegExpList []string `json:"ignoreRegExpList,omitempty" yaml:"ignoreRegExpList,omitempty"`
	// SpellCheckDelayMs is the per-document validation debounce in
	// milliseconds. Nil means the built-in default.
	SpellCheckDelayMs *int `json:"spellCheckDelayMs,omitempty" yaml:"spellCheckDelayMs,omitempty"`
	// MaxNumberOfProblems caps reported issues per document.
	MaxNumberOfProblems *int `json:"maxNumberOfProblems,omitempty" yaml:"maxNumberOfProblems,omitempty"`

	// isDefault marks the process-wide default instance. Copies never
	// carry the mark.
	isDefault bool
}

// defaultDoc is the single default configuration instance. It must never
// be mutated; every mutation operation copies before changing anything.
var defaultDoc = &Document{Version: CurrentConfigVersion, isDefault: true}

// DefaultDocument returns the process-wide default configuration document.
// The same instance is returned on every call, so both pointer comparison
// and IsDefault identify it.
func DefaultDocument() *Document {
	return defaultDoc
}

// IsDefault reports whether d is the process-wide default configuration
// document returned for paths with no configuration file.
func (d *Document) IsDefault() bool {
	return d != nil && d.isDefault
}

// Clone returns a deep copy of d. The copy is never marked as the default
// document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{
		Version:             d.Version,
		Description:         d.Description,
		Enabled:             cloneBool(d.Enabled),
		Words:               cloneStrings(d.Words),
		FlagWords:           cloneStrings(d.FlagWords),
		IgnoreWords:         cloneStrings(d.IgnoreWords),
		EnabledLanguageIDs:  cloneStrings(d.EnabledLanguageIDs),
		Import:              cloneStrings(d.Import),
		IgnorePaths:         cloneStrings(d.IgnorePaths),
		IgnoreRegExpList:    cloneStrings(d.IgnoreRegExpList),
		SpellCheckDelayMs:   cloneInt(d.SpellCheckDelayMs),
		MaxNumberOfProblems: cloneInt(d.MaxNumberOfProblems),
	}
}

// Merge returns a new document combining d with other, right-biased:
// scalar fields set in other override d, list fields are unioned with
// d's entries first and other's genuinely new entries appended. Neither
// input is modified.
func (d *Document) Merge(other *Document) *Document {
	if d == nil {
		return other.Clone()
	}
	if other == nil {
		return d.Clone()
	}

	out := d.Clone()
	if other.Version != "" {
		out.Version = other.Version
	}
	if other.Description != "" {
		out.Description = other.Description
	}
	if other.Enabled != nil {
		out.Enabled = cloneBool(other.Enabled)
	}
	if other.SpellCheckDelayMs != nil {
		out.SpellCheckDelayMs = cloneInt(other.SpellCheckDelayMs)
	}
	if other.MaxNumberOfProblems != nil {
		out.MaxNumberOfProblems = cloneInt(other.MaxNumberOfProblems)
	}
	out.Words = unionStrings(out.Words, other.Words)
	out.FlagWords = unionStrings(out.FlagWords, other.FlagWords)
	out.IgnoreWords = unionStrings(out.IgnoreWords, other.IgnoreWords)
	out.EnabledLanguageIDs = unionStrings(out.EnabledLanguageIDs, other.EnabledLanguageIDs)
	out.Import = unionStrings(out.Import, other.Import)
	out.IgnorePaths = unionStrings(out.IgnorePaths, other.IgnorePaths)
	out.IgnoreRegExpList = unionStrings(out.IgnoreRegExpList, other.IgnoreRegExpList)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
