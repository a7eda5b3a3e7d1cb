package document

import (
	"errors"
	"testing"
)

func TestStoreOpenAndGet(t *testing.T) {
	s := NewStore()
	if err := s.Open("file:///a.md", "markdown", 1, "hello"); err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	doc, ok := s.Get("file:///a.md")
	if !ok {
		t.Fatal("Get() did not find the open document")
	}
	if doc.LanguageID != "markdown" || doc.Version != 1 || doc.Text != "hello" {
		t.Errorf("Get() = %+v", doc)
	}

	if err := s.Open("file:///a.md", "markdown", 1, "hello"); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second Open() error = %v, want ErrAlreadyOpen", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	if err := s.Open("file:///a.md", "markdown", 1, "v1"); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Update("file:///a.md", 2, "v2")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if doc.Version != 2 || doc.Text != "v2" {
		t.Errorf("Update() = %+v", doc)
	}

	// An out-of-order version keeps the higher version number.
	doc, err = s.Update("file:///a.md", 1, "late")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if doc.Version != 2 {
		t.Errorf("version after stale update = %d, want 2", doc.Version)
	}
	if doc.Text != "late" {
		t.Errorf("text after stale update = %q", doc.Text)
	}

	if _, err := s.Update("file:///other.md", 1, "x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Update() on unknown doc error = %v, want ErrNotOpen", err)
	}
}

func TestStoreCloseAndAll(t *testing.T) {
	s := NewStore()
	for _, uri := range []string{"file:///a.md", "file:///b.go"} {
		if err := s.Open(uri, "plaintext", 1, ""); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	if err := s.Close("file:///a.md"); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close("file:///a.md"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("second Close() error = %v, want ErrNotOpen", err)
	}

	all := s.All()
	if len(all) != 1 || all[0].URI != "file:///b.go" {
		t.Errorf("All() = %+v", all)
	}
}

func TestStoreHandsOutCopies(t *testing.T) {
	s := NewStore()
	if err := s.Open("file:///a.md", "markdown", 1, "original"); err != nil {
		t.Fatal(err)
	}

	doc, _ := s.Get("file:///a.md")
	doc.Text = "mutated"

	fresh, _ := s.Get("file:///a.md")
	if fresh.Text != "original" {
		t.Error("mutating a returned document changed the stored state")
	}
}
