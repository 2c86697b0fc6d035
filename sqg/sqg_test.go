package sqg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexragph/lexrag/llm"
)

// fakeProvider returns canned chat responses and counts calls.
type fakeProvider struct {
	content string
	err     error
	calls   int
}

func (f *fakeProvider) Chat(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.content}, nil
}

func TestFallbackDefaults(t *testing.T) {
	q := Fallback("Can my landlord evict me without notice?")

	if q.Jurisdiction != DefaultJurisdiction {
		t.Errorf("jurisdiction = %q, want %q", q.Jurisdiction, DefaultJurisdiction)
	}
	if q.Urgency != UrgencyLow {
		t.Errorf("urgency = %q, want %q", q.Urgency, UrgencyLow)
	}
	for name, s := range map[string][]string{
		"Keywords":           q.Keywords,
		"LegalTopics":        q.LegalTopics,
		"StatutesReferenced": q.StatutesReferenced,
		"RelatedTerms":       q.RelatedTerms,
		"QueryExpansions":    q.QueryExpansions,
	} {
		if s == nil {
			t.Errorf("%s is nil, want non-nil slice", name)
		}
	}
}

func TestFallbackKeywords(t *testing.T) {
	q := Fallback("What is the penalty for theft?")

	want := map[string]bool{"penalty": true, "theft": true}
	for _, kw := range q.Keywords {
		if stopwords[kw] {
			t.Errorf("stopword %q leaked into keywords", kw)
		}
		delete(want, kw)
	}
	if len(want) != 0 {
		t.Errorf("missing keywords %v in %v", want, q.Keywords)
	}
}

func TestFallbackTopics(t *testing.T) {
	tests := []struct {
		question string
		topic    string
	}{
		{"What is the penalty for theft?", "criminal"},
		{"Can my landlord evict me?", "civil"},
		{"Is my dismissal from work legal?", "labor"},
		{"How do I file an appeal?", "procedural"},
		{"Grounds for annulment of marriage", "family"},
	}
	for _, tt := range tests {
		q := Fallback(tt.question)
		found := false
		for _, topic := range q.LegalTopics {
			if topic == tt.topic {
				found = true
			}
		}
		if !found {
			t.Errorf("Fallback(%q).LegalTopics = %v, want to contain %q", tt.question, q.LegalTopics, tt.topic)
		}
	}
}

func TestFallbackStatuteDetection(t *testing.T) {
	q := Fallback("Compare Article 308 with Art. 310 and rule 45, then Article 308 again")

	want := []string{"rule 45", "Article 308", "Art. 310"}
	if len(q.StatutesReferenced) != len(want) {
		t.Fatalf("statutes = %v, want %v", q.StatutesReferenced, want)
	}
	for i, s := range want {
		if q.StatutesReferenced[i] != s {
			t.Errorf("statutes[%d] = %q, want %q", i, q.StatutesReferenced[i], s)
		}
	}
}

func TestFallbackUrgency(t *testing.T) {
	if q := Fallback("My brother was arrested last night, what do we do?"); q.Urgency != UrgencyHigh {
		t.Errorf("urgency = %q, want high", q.Urgency)
	}
	if q := Fallback("What is the prescriptive period for estafa?"); q.Urgency != UrgencyLow {
		t.Errorf("urgency = %q, want low", q.Urgency)
	}
}

func TestGenerateDisabled(t *testing.T) {
	p := &fakeProvider{content: "{}"}
	s := New(p, Config{Enabled: false})

	q, used := s.Generate(context.Background(), "Can my landlord evict me without notice?")
	if used {
		t.Error("disabled structurer must report heuristic path")
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0", p.calls)
	}
	if q.Jurisdiction != DefaultJurisdiction {
		t.Errorf("jurisdiction = %q, want %q", q.Jurisdiction, DefaultJurisdiction)
	}
}

func TestGenerateNilProvider(t *testing.T) {
	s := New(nil, Config{Enabled: true})
	q, used := s.Generate(context.Background(), "test question here")
	if used {
		t.Error("nil provider must fall back to heuristics")
	}
	if q.Keywords == nil {
		t.Error("fallback keywords must be non-nil")
	}
}

func TestGenerateLLMPath(t *testing.T) {
	p := &fakeProvider{content: `{
		"normalized_question": "Can a landlord evict a tenant without notice?",
		"keywords": ["landlord", "evict", "notice"],
		"legal_topics": ["civil"],
		"statutes_referenced": [],
		"jurisdiction": "Philippines",
		"temporal_scope": "",
		"related_terms": ["ejectment", "unlawful detainer"],
		"urgency": "medium",
		"query_expansions": ["tenant eviction requirements"]
	}`}
	s := New(p, Config{Enabled: true})

	q, used := s.Generate(context.Background(), "Can my landlord evict me without notice?")
	if !used {
		t.Fatal("LLM path expected")
	}
	if q.Urgency != UrgencyMedium {
		t.Errorf("urgency = %q, want medium", q.Urgency)
	}
	if len(q.RelatedTerms) != 2 {
		t.Errorf("related terms = %v", q.RelatedTerms)
	}
}

func TestGenerateCachesPerQuestion(t *testing.T) {
	p := &fakeProvider{content: `{"normalized_question": "q"}`}
	s := New(p, Config{Enabled: true, CacheTTL: time.Minute})

	s.Generate(context.Background(), "Is overtime pay mandatory?")
	// Case and surrounding whitespace do not break the cache key.
	_, used := s.Generate(context.Background(), "  is overtime pay MANDATORY?  ")
	if !used {
		t.Error("cache hit must still report the LLM path")
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("endpoint down")}
	s := New(p, Config{Enabled: true})

	q, used := s.Generate(context.Background(), "What is the penalty for theft?")
	if used {
		t.Error("provider failure must fall back to heuristics")
	}
	if len(q.Keywords) == 0 {
		t.Error("fallback must still extract keywords")
	}
}

func TestParseStructuredFencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"normalized_question\": \"x\", \"urgency\": \"high\"}\n```"
	q, err := parseStructured(raw, "orig")
	if err != nil {
		t.Fatalf("parseStructured() error = %v", err)
	}
	if q.Urgency != UrgencyHigh {
		t.Errorf("urgency = %q, want high", q.Urgency)
	}
}

func TestParseStructuredBareObject(t *testing.T) {
	q, err := parseStructured(`noise {"keywords": ["a"]} trailing`, "orig")
	if err != nil {
		t.Fatalf("parseStructured() error = %v", err)
	}
	if q.NormalizedQuestion != "orig" {
		t.Errorf("normalized question = %q, want original", q.NormalizedQuestion)
	}
	if q.Urgency != UrgencyLow {
		t.Errorf("urgency defaulted to %q, want low", q.Urgency)
	}
}

func TestParseStructuredInvalid(t *testing.T) {
	if _, err := parseStructured("no json here", "q"); err == nil {
		t.Error("expected error for response without JSON")
	}
	if _, err := parseStructured(`{"keywords": "not-a-list"}`, "q"); err == nil {
		t.Error("expected error for mistyped JSON")
	}
}
