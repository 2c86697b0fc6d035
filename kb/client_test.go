package kb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(ClientConfig{
		BaseURL: srv.URL,
		Secret:  "a.b.c",
	})
	c.exec.sleep = func(time.Duration) {}
	return c
}

func TestSearchWireFormat(t *testing.T) {
	var gotReq searchRequest
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/kb/search" {
			t.Errorf("path = %q, want /kb/search", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		sim := 0.82
		json.NewEncoder(w).Encode(searchResponse{
			Success: true,
			Results: []Entry{{
				EntryID:           "roc-rule45-s1",
				Title:             "Appeal by certiorari",
				CanonicalCitation: "Rules of Court, Rule 45, Sec. 1",
				Tags:              []string{"procedural"},
				Similarity:        &sim,
			}},
		})
	})

	entries, err := c.Search(context.Background(), SearchParams{
		Query:              "appeal by certiorari",
		Limit:              12,
		Method:             MethodVector,
		LegalTopics:        []string{"procedural"},
		StatutesReferenced: []string{"Rule 45"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotAuth != "Bearer a.b.c" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotReq.Method != MethodVector || gotReq.Limit != 12 {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.StatutesReferenced) != 1 {
		t.Errorf("statutes = %v", gotReq.StatutesReferenced)
	}

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.EntryID != "roc-rule45-s1" || e.SimilarityOrZero() != 0.82 {
		t.Errorf("entry = %+v", e)
	}
}

func TestSearchBodyLevelFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Success: false, Error: "index rebuilding"})
	})

	_, err := c.Search(context.Background(), SearchParams{Query: "q", Limit: 5, Method: MethodVector})
	if !errors.Is(err, ErrSearchFailed) {
		t.Errorf("error = %v, want ErrSearchFailed", err)
	}
}

func TestSearchMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway</html>"))
	})

	_, err := c.Search(context.Background(), SearchParams{Query: "q", Limit: 5, Method: MethodVector})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestAnswerWireFormat(t *testing.T) {
	var gotReq answerRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %q, want /chat", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(answerResponse{Answer: "Under Rule 45, only questions of law may be raised."})
	})

	answer, err := c.Answer(context.Background(), "What does Rule 45 cover?", []Entry{{EntryID: "a"}}, CaseAssessmentMode, true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer == "" {
		t.Error("empty answer")
	}
	if !gotReq.KBFirst || gotReq.Mode != CaseAssessmentMode {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.ContextEntries) != 1 {
		t.Errorf("context entries = %v", gotReq.ContextEntries)
	}
}

func TestAnswerNilContextSerializesEmpty(t *testing.T) {
	var raw map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		json.NewEncoder(w).Encode(answerResponse{Answer: "Hello!"})
	})

	if _, err := c.Answer(context.Background(), "hi", nil, "", false); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if string(raw["context_entries"]) != "[]" {
		t.Errorf("context_entries = %s, want []", raw["context_entries"])
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestHealthDegraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if err := c.Health(context.Background()); err == nil {
		t.Error("expected error for unhealthy upstream")
	}
}
