// Package retrieval orchestrates the cascading hybrid search over the KB
// service: vector similarity first, lexical search when the vector pass is
// weak, and fast-path citation matching whenever the query references
// statutes. Merged candidates are deduplicated and ranked by similarity.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lexragph/lexrag/kb"
	"github.com/lexragph/lexrag/sqg"
)

// Method tags reported alongside retrieval results.
const (
	MethodVector   = kb.MethodVector
	MethodLexical  = kb.MethodLexical
	MethodFastPath = kb.MethodFastPath
	MethodHybrid   = "hybrid"
	MethodNone     = "none"
)

// Searcher runs one search strategy against the KB. Implemented by the
// caching layer in this package; tests substitute fakes.
type Searcher interface {
	Search(ctx context.Context, p kb.SearchParams) ([]kb.Entry, error)
}

// Config holds retrieval engine configuration.
type Config struct {
	// TopK caps the merged result set. Default 12.
	TopK int
	// SimilarityFloor is the vector score below which lexical search is
	// added. Default 0.20.
	SimilarityFloor float64
	// FastPathLimit caps the citation-match result set. Default 8.
	FastPathLimit int
}

func (c *Config) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 12
	}
	if c.SimilarityFloor <= 0 {
		c.SimilarityFloor = 0.20
	}
	if c.FastPathLimit <= 0 {
		c.FastPathLimit = 8
	}
}

// Engine performs cascading hybrid retrieval.
type Engine struct {
	search Searcher
	cfg    Config
}

// New creates a retrieval engine.
func New(search Searcher, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{search: search, cfg: cfg}
}

// Retrieve runs the cascade and returns the merged, deduplicated, ranked
// entry set (size <= TopK) plus the method tag describing which strategies
// contributed. Individual strategy failures are swallowed; an error is
// returned only when every attempted strategy failed.
func (e *Engine) Retrieve(ctx context.Context, question string, sq sqg.StructuredQuery) ([]kb.Entry, string, error) {
	start := time.Now()

	type result struct {
		entries []kb.Entry
		err     error
	}

	vecCh := make(chan result, 1)
	fastCh := make(chan result, 1)

	go func() {
		r, err := e.search.Search(ctx, kb.SearchParams{
			Query:       question,
			Limit:       e.cfg.TopK,
			Method:      kb.MethodVector,
			LegalTopics: sq.LegalTopics,
		})
		vecCh <- result{r, err}
	}()

	// Citation queries are precise enough to always check; the fast path
	// does not depend on the vector outcome so it runs alongside it.
	wantFastPath := len(sq.StatutesReferenced) > 0
	if wantFastPath {
		go func() {
			r, err := e.search.Search(ctx, kb.SearchParams{
				Query:              question,
				Limit:              e.cfg.FastPathLimit,
				Method:             kb.MethodFastPath,
				StatutesReferenced: sq.StatutesReferenced,
			})
			fastCh <- result{r, err}
		}()
	} else {
		fastCh <- result{}
	}

	vec := <-vecCh
	if vec.err != nil {
		slog.Warn("retrieval: vector search failed", "error", vec.err)
	}

	// Lexical search backs up a weak vector pass only, so it must wait on
	// the vector result.
	var lex result
	wantLexical := vec.err != nil || len(vec.entries) == 0 || bestSimilarity(vec.entries) < e.cfg.SimilarityFloor
	if wantLexical {
		lex.entries, lex.err = e.search.Search(ctx, kb.SearchParams{
			Query:  question,
			Limit:  e.cfg.TopK,
			Method: kb.MethodLexical,
		})
		if lex.err != nil {
			slog.Warn("retrieval: lexical search failed", "error", lex.err)
		}
	}

	fast := <-fastCh
	if fast.err != nil {
		slog.Warn("retrieval: fast-path search failed", "error", fast.err)
	}

	merged := mergeEntries(vec.entries, lex.entries, fast.entries)
	sortBySimilarity(merged)
	if len(merged) > e.cfg.TopK {
		merged = merged[:e.cfg.TopK]
	}

	method := methodTag(vec.entries, lex.entries, fast.entries)
	slog.Debug("retrieval: cascade complete",
		"vector", len(vec.entries), "lexical", len(lex.entries),
		"fast_path", len(fast.entries), "merged", len(merged),
		"method", method,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if len(merged) == 0 {
		// Distinguish "nothing matched" from "everything broke".
		attempted := 1
		failed := 0
		if vec.err != nil {
			failed++
		}
		if wantLexical {
			attempted++
			if lex.err != nil {
				failed++
			}
		}
		if wantFastPath {
			attempted++
			if fast.err != nil {
				failed++
			}
		}
		if failed == attempted {
			return nil, MethodNone, fmt.Errorf("all retrieval strategies failed: %w", vec.err)
		}
	}

	return merged, method, nil
}

// bestSimilarity returns the highest similarity in entries (0 if empty).
func bestSimilarity(entries []kb.Entry) float64 {
	best := 0.0
	for _, e := range entries {
		if s := e.SimilarityOrZero(); s > best {
			best = s
		}
	}
	return best
}

// mergeEntries concatenates the per-strategy result sets in cascade order,
// deduplicating by entry id. The first-seen occurrence wins, including its
// similarity score.
func mergeEntries(sets ...[]kb.Entry) []kb.Entry {
	seen := make(map[string]bool)
	var merged []kb.Entry
	for _, set := range sets {
		for _, e := range set {
			if e.EntryID == "" || seen[e.EntryID] {
				continue
			}
			seen[e.EntryID] = true
			merged = append(merged, e)
		}
	}
	return merged
}

// sortBySimilarity orders entries by descending similarity; entries without
// a score sort as 0. The sort is stable so equal scores keep merge order.
func sortBySimilarity(entries []kb.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SimilarityOrZero() > entries[j].SimilarityOrZero()
	})
}

// methodTag names the contributing strategies: a single method when only
// one returned entries, "hybrid" for several, "none" for an empty merge.
func methodTag(vec, lex, fast []kb.Entry) string {
	var contributors []string
	if len(vec) > 0 {
		contributors = append(contributors, MethodVector)
	}
	if len(lex) > 0 {
		contributors = append(contributors, MethodLexical)
	}
	if len(fast) > 0 {
		contributors = append(contributors, MethodFastPath)
	}
	switch len(contributors) {
	case 0:
		return MethodNone
	case 1:
		return contributors[0]
	default:
		return MethodHybrid
	}
}
