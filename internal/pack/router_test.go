package pack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qda-labs/funnel/internal/domain"
)

func writePack(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	writePack(t, dir, "universal", `{"domain": "universal", "keywords": [], "facets": []}`)
	writePack(t, dir, "baking", `{
		"domain": "baking",
		"keywords": ["bakery", "bread", "boulangerie"],
		"facets": [
			{"id": "shop_type", "title": "Shop Type", "question": "What kind of shop?",
			 "choices": [{"value": "bakery counter", "subchoices": []}, {"value": "cafe", "subchoices": []}]}
		]
	}`)
	writePack(t, dir, "fitness", `{
		"domain": "fitness",
		"keywords": ["gym", "workout"],
		"facets": []
	}`)
	return NewStore(dir)
}

func TestStore_Names(t *testing.T) {
	store := testStore(t)
	names := store.Names()
	want := []string{"baking", "fitness", "universal"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	store := testStore(t)
	_, err := store.Load("nope")
	if err == nil {
		t.Fatal("Load() expected error for unknown pack")
	}
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeNotFound {
		t.Errorf("Load() error = %v, want not_found", err)
	}
}

func TestChoosePack_KeywordScoring(t *testing.T) {
	router := NewRouter(testStore(t))

	tests := []struct {
		name  string
		query string
		hint  string
		want  string
	}{
		{"keyword match", "How do I open a bakery in Paris?", "", "baking"},
		{"facet term match", "I want a bakery counter and bread ovens", "", "baking"},
		{"no match falls back", "Tell me about quantum physics", "", "universal"},
		{"highest score wins", "bakery bread workout", "", "baking"},
		{"hint exact", "anything", "fitness", "fitness"},
		{"hint substring of pack", "anything", "bak", "baking"},
		{"hint contains pack", "anything", "fitness-and-more", "fitness"},
		{"hint matches pack keyword", "anything", "gym", "fitness"},
		{"unusable hint falls through", "bread please", "cooking", "baking"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := router.ChoosePack(tt.query, tt.hint)
			if got != tt.want {
				t.Errorf("ChoosePack(%q, %q) = %q, want %q", tt.query, tt.hint, got, tt.want)
			}
		})
	}
}

func TestChoosePack_UniversalOnlyWhenNothingMatches(t *testing.T) {
	router := NewRouter(testStore(t))
	if got := router.ChoosePack("", ""); got != UniversalPack {
		t.Errorf("ChoosePack(empty) = %q, want %q", got, UniversalPack)
	}
}

func TestSearchableTerms(t *testing.T) {
	store := testStore(t)
	p, err := store.Load("baking")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	terms := p.SearchableTerms()
	found := map[string]bool{}
	for _, term := range terms {
		found[term] = true
	}
	for _, want := range []string{"bakery", "shop type", "what kind of shop?", "bakery counter", "cafe"} {
		if !found[want] {
			t.Errorf("SearchableTerms() missing %q (got %v)", want, terms)
		}
	}
}
