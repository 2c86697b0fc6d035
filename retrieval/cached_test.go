package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/lexragph/lexrag/kb"
)

func TestCachedSearcherMemoizes(t *testing.T) {
	fs := newFakeSearcher()
	fs.results[kb.MethodVector] = []kb.Entry{entry("a", 0.9)}
	cs := NewCachedSearcher(fs, time.Minute)

	p := kb.SearchParams{Query: "Eviction Notice", Limit: 12, Method: kb.MethodVector}
	for i := 0; i < 3; i++ {
		entries, err := cs.Search(context.Background(), p)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
	}
	if got := fs.callCount(kb.MethodVector); got != 1 {
		t.Errorf("upstream called %d times, want 1", got)
	}

	// Case and whitespace do not fragment the cache.
	if _, err := cs.Search(context.Background(), kb.SearchParams{Query: "  eviction notice ", Limit: 12, Method: kb.MethodVector}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := fs.callCount(kb.MethodVector); got != 1 {
		t.Errorf("normalized query missed the cache, upstream calls = %d", got)
	}
}

func TestCachedSearcherKeyDiscriminates(t *testing.T) {
	fs := newFakeSearcher()
	cs := NewCachedSearcher(fs, time.Minute)
	ctx := context.Background()

	base := kb.SearchParams{Query: "q", Limit: 12, Method: kb.MethodVector}
	variants := []kb.SearchParams{
		base,
		{Query: "q", Limit: 5, Method: kb.MethodVector},
		{Query: "q", Limit: 12, Method: kb.MethodLexical},
		{Query: "q", Limit: 12, Method: kb.MethodVector, LegalTopics: []string{"civil"}},
		{Query: "q", Limit: 12, Method: kb.MethodVector, StatutesReferenced: []string{"Rule 45"}},
	}
	for _, p := range variants {
		if _, err := cs.Search(ctx, p); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
	}

	total := fs.callCount(kb.MethodVector) + fs.callCount(kb.MethodLexical)
	if total != len(variants) {
		t.Errorf("upstream calls = %d, want %d distinct", total, len(variants))
	}
}
