// Package resolve computes effective spell-checker settings per document
// URI. A Resolver merges the default configuration, editor-pushed
// settings, registered imports, and the configuration file nearest to
// the document, caches the result per URI, and recomputes everything
// after an invalidation signal. It also owns the compiled exclusion
// globs and ignore patterns derived from each settings generation.
package resolve

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dshills/spelld/internal/settings"
	"github.com/dshills/spelld/internal/settings/loader"
	"github.com/rs/zerolog"
)

const (
	// DefaultSpellCheckDelay debounces document validation when the
	// configuration does not set spellCheckDelayMs.
	DefaultSpellCheckDelay = 50 * time.Millisecond

	// DefaultMaxProblems caps reported issues per document when the
	// configuration does not set maxNumberOfProblems.
	DefaultMaxProblems = 100

	// maxImportDepth bounds the configuration import chain.
	maxImportDepth = 10
)

// DefaultEnabledLanguageIDs are the language ids checked when no
// configuration sets enabledLanguageIds.
var DefaultEnabledLanguageIDs = []string{
	"asciidoc", "c", "cpp", "csharp", "css", "go", "handlebars", "html",
	"jade", "java", "javascript", "javascriptreact", "json", "latex",
	"less", "markdown", "php", "plaintext", "pug", "python",
	"restructuredtext", "ruby", "rust", "scala", "scss", "text",
	"typescript", "typescriptreact", "yaml", "yml",
}

// configSearchNames are the well-known configuration file names searched
// for near a document, in priority order.
var configSearchNames = []string{
	".cspell.json",
	"cspell.json",
	"cspell.jsonc",
	"cspell.yaml",
	"cspell.yml",
	"cspell.config.json",
	"cspell.config.jsonc",
	"cspell.config.yaml",
	"cspell.config.yml",
	"cspell.config.toml",
	"cspell.config.js",
	"cspell.config.cjs",
	"cspell.config.mjs",
	"cspell.config.lua",
}

// IsDefaultEnabledLanguageID reports whether id is enabled without any
// configuration.
func IsDefaultEnabledLanguageID(id string) bool {
	for _, known := range DefaultEnabledLanguageIDs {
		if known == id {
			return true
		}
	}
	return false
}

// Effective is the fully merged configuration for one document at one
// moment, with the compiled exclusion and ignore patterns of its
// settings generation.
type Effective struct {
	// Doc is the merged configuration document.
	Doc *settings.Document
	// Exclusions are the compiled exclusion globs.
	Exclusions *ExclusionSet
	// IgnoreRegexps are the compiled ignoreRegExpList patterns.
	IgnoreRegexps []*regexp.Regexp
}

// Enabled reports whether checking is on. Unset means enabled.
func (e *Effective) Enabled() bool {
	return e.Doc.Enabled == nil || *e.Doc.Enabled
}

// LanguageEnabled reports whether documents with languageID should be
// checked. An explicit enabledLanguageIds list replaces the default set.
func (e *Effective) LanguageEnabled(languageID string) bool {
	ids := e.Doc.EnabledLanguageIDs
	if len(ids) == 0 {
		ids = DefaultEnabledLanguageIDs
	}
	for _, id := range ids {
		if id == languageID {
			return true
		}
	}
	return false
}

// Delay returns the validation debounce for documents under these
// settings.
func (e *Effective) Delay() time.Duration {
	if ms := e.Doc.SpellCheckDelayMs; ms != nil && *ms >= 0 {
		return time.Duration(*ms) * time.Millisecond
	}
	return DefaultSpellCheckDelay
}

// MaxProblems returns the cap on reported issues per document.
func (e *Effective) MaxProblems() int {
	if n := e.Doc.MaxNumberOfProblems; n != nil && *n > 0 {
		return *n
	}
	return DefaultMaxProblems
}

// Resolver owns per-connection settings state: the editor-pushed
// configuration, registered configuration files, and the per-URI cache
// of effective settings. All methods are safe for concurrent use.
type Resolver struct {
	mu   sync.Mutex
	fsys loader.FileSystem
	log  zerolog.Logger

	clientSettings *settings.Document
	imports        []string
	needsReload    bool
	global         *settings.Document
	cache          map[string]*Effective

	// Connection-scoped overrides. They win over any configuration.
	checkLimit int
	enabled    *bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFileSystem sets the file system used to load configuration files.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(r *Resolver) { r.fsys = fsys }
}

// WithLogger sets the resolver's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithCheckLimit caps reported issues per document regardless of
// configuration.
func WithCheckLimit(limit int) Option {
	return func(r *Resolver) { r.checkLimit = limit }
}

// WithEnabled forces checking on or off regardless of configuration.
func WithEnabled(enabled bool) Option {
	return func(r *Resolver) { r.enabled = &enabled }
}

// New creates a Resolver with no client settings and no imports.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		fsys:        loader.DefaultFS(),
		log:         zerolog.Nop(),
		cache:       make(map[string]*Effective),
		needsReload: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ApplyClientSettings replaces the editor-pushed configuration and marks
// every cached entry stale.
func (r *Resolver) ApplyClientSettings(doc *settings.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clientSettings = doc
	r.needsReload = true
}

// RegisterConfigurationFile adds path to the import set and marks
// settings for recomputation. Re-registering a known path still
// invalidates, since its content may have changed.
func (r *Resolver) RegisterConfigurationFile(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.needsReload = true
	for _, p := range r.imports {
		if p == path {
			return
		}
	}
	r.imports = append(r.imports, path)
}

// ConfigurationFiles returns the registered configuration file paths in
// registration order.
func (r *Resolver) ConfigurationFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.imports))
	copy(out, r.imports)
	return out
}

// ResetSettings drops all cached per-URI settings, forcing the next
// access to recompute from disk.
func (r *Resolver) ResetSettings() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*Effective)
	r.global = nil
	r.needsReload = true
}

// GetURISettings returns the effective settings for uri. When an
// invalidation signal was received the cache is cleared and the global
// defaults recomputed first.
func (r *Resolver) GetURISettings(uri string) *Effective {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadIfNeededLocked()
	if eff, ok := r.cache[uri]; ok {
		return eff
	}
	eff := r.computeLocked(uri)
	r.cache[uri] = eff
	return eff
}

// IsExcluded reports whether uri is excluded from checking by the
// effective exclusion globs.
func (r *Resolver) IsExcluded(uri string) bool {
	return r.GetURISettings(uri).Exclusions.MatchURI(uri)
}

// GlobalSettings returns the merged global configuration with no
// per-document overlay.
func (r *Resolver) GlobalSettings() *settings.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadIfNeededLocked()
	return r.global
}

func (r *Resolver) reloadIfNeededLocked() {
	if !r.needsReload && r.global != nil {
		return
	}
	r.cache = make(map[string]*Effective)
	r.global = r.computeGlobalLocked()
	r.needsReload = false
}

// computeGlobalLocked folds the default document, registered imports,
// and client settings into the global configuration.
func (r *Resolver) computeGlobalLocked() *settings.Document {
	merged := settings.DefaultDocument().Clone()
	seen := make(map[string]bool)
	for _, path := range r.imports {
		merged = merged.Merge(r.loadConfigFile(path, seen, 0))
	}
	if r.clientSettings != nil {
		for _, imp := range r.clientSettings.Import {
			merged = merged.Merge(r.loadConfigFile(imp, seen, 0))
		}
		merged = merged.Merge(r.clientSettings)
	}
	return merged
}

// loadConfigFile reads the configuration at path and folds in its
// import chain depth-first, parents merged beneath the importing file.
// Cycles and overly deep chains are cut off; a missing or unreadable
// file contributes nothing.
func (r *Resolver) loadConfigFile(path string, seen map[string]bool, depth int) *settings.Document {
	if depth > maxImportDepth {
		r.log.Warn().Str("path", path).Msg("config import chain too deep")
		return nil
	}
	if seen[path] {
		return nil
	}
	seen[path] = true

	doc, err := settings.ReadRawConfig(r.fsys, path)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to load config file")
		return nil
	}
	if doc == nil {
		r.log.Debug().Str("path", path).Msg("config file not found")
		return nil
	}

	var merged *settings.Document
	for _, imp := range doc.Import {
		merged = merged.Merge(r.loadConfigFile(resolveImportPath(path, imp), seen, depth+1))
	}
	return merged.Merge(doc)
}

// resolveImportPath resolves imp relative to the importing file.
func resolveImportPath(from, imp string) string {
	if filepath.IsAbs(imp) || strings.Contains(imp, "://") {
		return imp
	}
	return filepath.Join(filepath.Dir(from), imp)
}

// computeLocked builds the effective settings for uri from the global
// configuration, the nearest configuration file, and the connection
// overrides.
func (r *Resolver) computeLocked(uri string) *Effective {
	doc := r.global
	if local := r.loadNearestConfig(uri); local != nil {
		doc = doc.Merge(local)
	}
	if r.checkLimit > 0 || r.enabled != nil {
		doc = doc.Clone()
		if r.checkLimit > 0 {
			limit := r.checkLimit
			doc.MaxNumberOfProblems = &limit
		}
		if r.enabled != nil {
			on := *r.enabled
			doc.Enabled = &on
		}
	}

	exclude := make([]string, 0, len(DefaultExcludePatterns)+len(doc.IgnorePaths))
	exclude = append(exclude, DefaultExcludePatterns...)
	exclude = append(exclude, doc.IgnorePaths...)

	return &Effective{
		Doc:           doc,
		Exclusions:    NewExclusionSet(exclude),
		IgnoreRegexps: CompileIgnoreRegexps(doc.IgnoreRegExpList),
	}
}

// loadNearestConfig walks from the document's directory toward the root
// looking for a well-known configuration file. The nearest hit wins and
// its import chain is folded in.
func (r *Resolver) loadNearestConfig(uri string) *settings.Document {
	path := LogicalPath(uri)
	if !strings.HasPrefix(path, "/") {
		return nil
	}
	dir := filepath.Dir(path)
	for {
		for _, name := range configSearchNames {
			candidate := filepath.Join(dir, name)
			if _, err := r.fsys.Stat(candidate); err != nil {
				continue
			}
			doc := r.loadConfigFile(candidate, make(map[string]bool), 0)
			if doc != nil {
				return doc
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}
