// Package sqg turns raw legal questions into structured queries: keywords,
// legal topics, statute references, urgency, and expansion terms. The
// primary path asks an LLM for strict JSON; every failure mode falls back
// to rule-based heuristics, so Generate never fails.
package sqg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/lexragph/lexrag/cache"
	"github.com/lexragph/lexrag/llm"
)

// Urgency levels for a structured query.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// DefaultJurisdiction is assumed when the question does not indicate one.
const DefaultJurisdiction = "Philippines"

// StructuredQuery is the normalized representation of a question. It is
// built once per question and never mutated; all slice fields are non-nil.
type StructuredQuery struct {
	NormalizedQuestion string   `json:"normalized_question"`
	Keywords           []string `json:"keywords"`
	LegalTopics        []string `json:"legal_topics"`
	StatutesReferenced []string `json:"statutes_referenced"`
	Jurisdiction       string   `json:"jurisdiction"`
	TemporalScope      string   `json:"temporal_scope"`
	RelatedTerms       []string `json:"related_terms"`
	Urgency            string   `json:"urgency"`
	QueryExpansions    []string `json:"query_expansions"`
}

// normalize fills defaults so every field honors the non-nil/enum
// invariants regardless of where the query came from.
func (q *StructuredQuery) normalize() {
	if q.Keywords == nil {
		q.Keywords = []string{}
	}
	if q.LegalTopics == nil {
		q.LegalTopics = []string{}
	}
	if q.StatutesReferenced == nil {
		q.StatutesReferenced = []string{}
	}
	if q.RelatedTerms == nil {
		q.RelatedTerms = []string{}
	}
	if q.QueryExpansions == nil {
		q.QueryExpansions = []string{}
	}
	if q.Jurisdiction == "" {
		q.Jurisdiction = DefaultJurisdiction
	}
	switch q.Urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
	default:
		q.Urgency = UrgencyLow
	}
}

// Config configures the structurer.
type Config struct {
	Enabled  bool
	Model    string
	CacheTTL time.Duration
}

// Structurer generates structured queries, caching results per question.
type Structurer struct {
	provider llm.Provider
	cfg      Config
	cache    *cache.Cache[StructuredQuery]
}

// New creates a structurer. A nil provider disables the LLM path; every
// call then uses heuristics.
func New(provider llm.Provider, cfg Config) *Structurer {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &Structurer{
		provider: provider,
		cfg:      cfg,
		cache:    cache.New[StructuredQuery](),
	}
}

const structuringPrompt = `You are a legal query analyzer for Philippine law.
Analyze the user's question and respond with ONLY a JSON object, no prose,
with exactly these keys:
{
  "normalized_question": "the question, cleaned and restated plainly",
  "keywords": ["significant keywords"],
  "legal_topics": ["e.g. criminal, civil, family, labor, procedural"],
  "statutes_referenced": ["exact statute citations mentioned, e.g. Article 308"],
  "jurisdiction": "Philippines unless another is explicit",
  "temporal_scope": "time period if relevant, else empty string",
  "related_terms": ["synonyms and related legal terms"],
  "urgency": "low, medium, or high",
  "query_expansions": ["alternative phrasings useful for retrieval"]
}`

// Generate returns the structured query for a question. It never fails:
// a disabled structurer, blank question, unreachable endpoint, or
// unparseable response all yield the heuristic fallback. The second
// return reports whether the LLM path produced the result.
func (s *Structurer) Generate(ctx context.Context, question string) (StructuredQuery, bool) {
	trimmed := strings.TrimSpace(question)
	if !s.cfg.Enabled || s.provider == nil || trimmed == "" {
		return Fallback(question), false
	}

	key := strings.ToLower(trimmed)
	if q, ok := s.cache.Get(key); ok {
		return q, true
	}

	resp, err := s.provider.Chat(ctx, llm.ChatRequest{
		Model: s.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: structuringPrompt},
			{Role: "user", Content: trimmed},
		},
		Temperature:    0.1,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("sqg: structuring call failed, using heuristics", "error", err)
		return Fallback(question), false
	}

	q, err := parseStructured(resp.Content, trimmed)
	if err != nil {
		slog.Warn("sqg: unparseable structuring response, using heuristics", "error", err)
		return Fallback(question), false
	}

	s.cache.Put(key, q, s.cfg.CacheTTL)
	return q, true
}

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// parseStructured extracts and validates the JSON object in raw.
func parseStructured(raw, question string) (StructuredQuery, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return StructuredQuery{}, fmt.Errorf("no JSON object in response")
		}
		raw = raw[start : end+1]
	}

	var q StructuredQuery
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return StructuredQuery{}, fmt.Errorf("decoding structured query: %w", err)
	}
	if q.NormalizedQuestion == "" {
		q.NormalizedQuestion = question
	}
	q.normalize()
	return q, nil
}
