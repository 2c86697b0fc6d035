package retrieval

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/lexragph/lexrag/cache"
	"github.com/lexragph/lexrag/kb"
)

// CachedSearcher memoizes (query, strategy) result sets with a TTL and
// collapses concurrent identical upstream calls onto a single fetch, so a
// burst of equal queries cannot amplify load on the KB service.
type CachedSearcher struct {
	upstream Searcher
	cache    *cache.Cache[[]kb.Entry]
	ttl      time.Duration
}

// NewCachedSearcher wraps upstream with a TTL cache. A non-positive TTL
// defaults to 60 seconds.
func NewCachedSearcher(upstream Searcher, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &CachedSearcher{
		upstream: upstream,
		cache:    cache.New[[]kb.Entry](),
		ttl:      ttl,
	}
}

// Search implements Searcher.
func (s *CachedSearcher) Search(ctx context.Context, p kb.SearchParams) ([]kb.Entry, error) {
	return s.cache.GetOrFetch(ctx, searchKey(p), s.ttl, func(ctx context.Context) ([]kb.Entry, error) {
		return s.upstream.Search(ctx, p)
	})
}

// searchKey builds the cache key from everything that shapes the upstream
// response.
func searchKey(p kb.SearchParams) string {
	var b strings.Builder
	b.WriteString(p.Method)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(p.Limit))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(p.Query)))
	for _, t := range p.LegalTopics {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(t))
	}
	for _, s := range p.StatutesReferenced {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(s))
	}
	return b.String()
}
