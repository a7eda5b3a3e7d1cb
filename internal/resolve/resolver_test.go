package resolve

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dshills/spelld/internal/settings"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolverDefaults(t *testing.T) {
	r := New()
	eff := r.GetURISettings("file:///any/doc.md")

	if !eff.Enabled() {
		t.Error("Enabled() = false with no configuration")
	}
	if !eff.LanguageEnabled("go") {
		t.Error("LanguageEnabled(go) = false with no configuration")
	}
	if eff.LanguageEnabled("binary") {
		t.Error("LanguageEnabled(binary) = true with no configuration")
	}
	if got := eff.Delay(); got != DefaultSpellCheckDelay {
		t.Errorf("Delay() = %v, want %v", got, DefaultSpellCheckDelay)
	}
	if got := eff.MaxProblems(); got != DefaultMaxProblems {
		t.Errorf("MaxProblems() = %v, want %v", got, DefaultMaxProblems)
	}
	if eff.Doc.Version != settings.CurrentConfigVersion {
		t.Errorf("merged version = %q, want %q", eff.Doc.Version, settings.CurrentConfigVersion)
	}
}

func TestResolverCachesPerURI(t *testing.T) {
	r := New()
	uri := "file:///project/readme.md"

	first := r.GetURISettings(uri)
	second := r.GetURISettings(uri)
	if first != second {
		t.Error("GetURISettings() recomputed a cached entry")
	}

	r.ApplyClientSettings(&settings.Document{Words: []string{"spelld"}})
	third := r.GetURISettings(uri)
	if third == first {
		t.Error("GetURISettings() returned a stale entry after ApplyClientSettings")
	}
	if !reflect.DeepEqual(third.Doc.Words, []string{"spelld"}) {
		t.Errorf("merged words = %v, want [spelld]", third.Doc.Words)
	}
}

func TestResolverClientSettingsOverride(t *testing.T) {
	r := New()
	enabled := false
	delay := 120
	r.ApplyClientSettings(&settings.Document{
		Enabled:            &enabled,
		SpellCheckDelayMs:  &delay,
		EnabledLanguageIDs: []string{"go"},
	})

	eff := r.GetURISettings("file:///w/doc.go")
	if eff.Enabled() {
		t.Error("Enabled() = true, client settings disabled checking")
	}
	if got := eff.Delay(); got != 120*time.Millisecond {
		t.Errorf("Delay() = %v, want 120ms", got)
	}
	if !eff.LanguageEnabled("go") || eff.LanguageEnabled("markdown") {
		t.Error("explicit enabledLanguageIds did not replace the default set")
	}
}

func TestResolverRegisteredConfigWithImports(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.json", `{
		"words": ["frombase"],
		"spellCheckDelayMs": 200
	}`)
	child := writeConfig(t, dir, "cfg.json", `{
		"import": ["base.json"],
		"words": ["fromchild"],
		"spellCheckDelayMs": 30
	}`)

	r := New()
	r.RegisterConfigurationFile(child)

	eff := r.GetURISettings("file:///elsewhere/doc.md")
	if !reflect.DeepEqual(eff.Doc.Words, []string{"frombase", "fromchild"}) {
		t.Errorf("merged words = %v, want [frombase fromchild]", eff.Doc.Words)
	}
	if got := eff.Delay(); got != 30*time.Millisecond {
		t.Errorf("Delay() = %v, importing file should override its parent", got)
	}
}

func TestResolverImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.json", `{"import": ["b.json"], "words": ["aa"]}`)
	b := writeConfig(t, dir, "b.json", `{"import": ["a.json"], "words": ["bb"]}`)

	r := New()
	r.RegisterConfigurationFile(b)

	eff := r.GetURISettings("file:///doc.md")
	if !reflect.DeepEqual(eff.Doc.Words, []string{"aa", "bb"}) {
		t.Errorf("merged words = %v, want [aa bb]", eff.Doc.Words)
	}
}

func TestResolverNearestConfig(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "docs")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, "cspell.json", `{"words": ["projectword"]}`)

	r := New()
	eff := r.GetURISettings("file://" + filepath.Join(sub, "guide.md"))
	if !reflect.DeepEqual(eff.Doc.Words, []string{"projectword"}) {
		t.Errorf("merged words = %v, want [projectword]", eff.Doc.Words)
	}
}

func TestResolverResetPicksUpFileChanges(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "cfg.json", `{"words": ["before"]}`)

	r := New()
	r.RegisterConfigurationFile(cfg)
	uri := "file:///doc.md"

	eff := r.GetURISettings(uri)
	if !reflect.DeepEqual(eff.Doc.Words, []string{"before"}) {
		t.Fatalf("merged words = %v, want [before]", eff.Doc.Words)
	}

	writeConfig(t, dir, "cfg.json", `{"words": ["after"]}`)
	if cached := r.GetURISettings(uri); !reflect.DeepEqual(cached.Doc.Words, []string{"before"}) {
		t.Errorf("cache returned %v before any invalidation", cached.Doc.Words)
	}

	r.ResetSettings()
	if fresh := r.GetURISettings(uri); !reflect.DeepEqual(fresh.Doc.Words, []string{"after"}) {
		t.Errorf("merged words after reset = %v, want [after]", fresh.Doc.Words)
	}
}

func TestResolverIsExcluded(t *testing.T) {
	r := New()
	r.ApplyClientSettings(&settings.Document{IgnorePaths: []string{"**/generated/**"}})

	tests := []struct {
		uri  string
		want bool
	}{
		{"vscode:/settings.json", true},
		{"file:///repo/generated/api.go", true},
		{"file:///repo/src/main.go", false},
	}
	for _, tt := range tests {
		if got := r.IsExcluded(tt.uri); got != tt.want {
			t.Errorf("IsExcluded(%q) = %v, want %v", tt.uri, got, tt.want)
		}
	}
}

func TestResolverConnectionOverrides(t *testing.T) {
	limit := 7
	r := New(WithCheckLimit(limit), WithEnabled(false))
	big := 500
	r.ApplyClientSettings(&settings.Document{
		Enabled:             boolPtr(true),
		MaxNumberOfProblems: &big,
	})

	eff := r.GetURISettings("file:///doc.md")
	if eff.Enabled() {
		t.Error("connection override did not win over client settings")
	}
	if got := eff.MaxProblems(); got != limit {
		t.Errorf("MaxProblems() = %d, want connection limit %d", got, limit)
	}
}

func TestIsDefaultEnabledLanguageID(t *testing.T) {
	if !IsDefaultEnabledLanguageID("markdown") {
		t.Error("markdown should be enabled by default")
	}
	if IsDefaultEnabledLanguageID("klingon") {
		t.Error("klingon should not be enabled by default")
	}
}

func TestResolverConfigurationFiles(t *testing.T) {
	r := New()
	r.RegisterConfigurationFile("/a/cspell.json")
	r.RegisterConfigurationFile("/b/cspell.json")
	r.RegisterConfigurationFile("/a/cspell.json")

	got := r.ConfigurationFiles()
	want := []string{"/a/cspell.json", "/b/cspell.json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConfigurationFiles() = %v, want %v", got, want)
	}
}

func boolPtr(b bool) *bool { return &b }
