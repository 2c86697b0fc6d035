// Package kb is the client for the external knowledge-base HTTP service.
// The service owns storage, the vector index, and answer generation; this
// package only speaks its wire protocol, with bounded retries and a
// self-minted service token when the configured secret is not already a JWT.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Search methods understood by the KB search endpoint.
const (
	MethodVector   = "vector"
	MethodLexical  = "lexical"
	MethodFastPath = "fast-path"
)

// Interaction modes passed through to answer generation. Case assessment
// is the only mode with special handling (thresholding, report skips).
const (
	CaseAssessmentMode = "case_assessment"
)

// Entry is one retrievable unit of legal knowledge as returned by the KB
// service. Identity is EntryID; Similarity is populated only by retrieval.
type Entry struct {
	EntryID           string   `json:"entry_id"`
	Type              string   `json:"type"`
	Title             string   `json:"title"`
	CanonicalCitation string   `json:"canonical_citation"`
	Summary           string   `json:"summary"`
	Text              string   `json:"text"`
	Tags              []string `json:"tags"`
	Similarity        *float64 `json:"similarity,omitempty"`
	RuleNo            string   `json:"rule_no"`
	SectionNo         string   `json:"section_no"`
	RightsScope       string   `json:"rights_scope"`
	SourceURLs        []string `json:"source_urls,omitempty"`
}

// SimilarityOrZero returns the similarity score, treating absent as 0.
func (e Entry) SimilarityOrZero() float64 {
	if e.Similarity == nil {
		return 0
	}
	return *e.Similarity
}

// SearchParams describes one search call against the KB service.
type SearchParams struct {
	Query              string
	Limit              int
	Method             string
	LegalTopics        []string
	StatutesReferenced []string
}

// ClientConfig configures the KB client.
type ClientConfig struct {
	BaseURL string
	// Secret is either a ready-to-use JWT or a signing secret for
	// self-minted service tokens (see NewTokenProvider).
	Secret  string
	Timeout time.Duration
	// Retry settings for transient upstream failures.
	MaxAttempts int
	BaseDelay   time.Duration
}

// Client talks to the KB HTTP API. All calls are bounded by the configured
// request timeout; transient failures are retried by the executor.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	exec    *Executor
}

// NewClient creates a KB client. Zero config values get defaults
// (8s timeout, 3 attempts, 1s base delay).
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  NewTokenProvider(cfg.Secret),
		exec:    NewExecutor(cfg.MaxAttempts, cfg.BaseDelay),
	}
}

type searchRequest struct {
	Query              string   `json:"query"`
	Limit              int      `json:"limit"`
	Method             string   `json:"method"`
	LegalTopics        []string `json:"legal_topics,omitempty"`
	StatutesReferenced []string `json:"statutes_referenced,omitempty"`
}

type searchResponse struct {
	Success bool    `json:"success"`
	Results []Entry `json:"results"`
	Error   string  `json:"error,omitempty"`
}

// Search runs one search call. Transient upstream failures are retried;
// a body-level failure (success:false) or malformed payload is returned
// as an error for the caller to degrade on.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]Entry, error) {
	body := searchRequest{
		Query:              p.Query,
		Limit:              p.Limit,
		Method:             p.Method,
		LegalTopics:        p.LegalTopics,
		StatutesReferenced: p.StatutesReferenced,
	}

	var results []Entry
	err := c.exec.Execute(ctx, "kb search", func(ctx context.Context) error {
		respBody, err := c.doPost(ctx, "/kb/search", body)
		if err != nil {
			return err
		}
		var resp searchResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if !resp.Success {
			return fmt.Errorf("%w: %s", ErrSearchFailed, resp.Error)
		}
		results = resp.Results
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type answerRequest struct {
	Question       string  `json:"question"`
	ContextEntries []Entry `json:"context_entries"`
	Mode           string  `json:"mode"`
	KBFirst        bool    `json:"kb_first"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Answer asks the KB service to generate an answer, optionally grounded in
// the given context entries.
func (c *Client) Answer(ctx context.Context, question string, contextEntries []Entry, mode string, kbFirst bool) (string, error) {
	if contextEntries == nil {
		contextEntries = []Entry{}
	}
	body := answerRequest{
		Question:       question,
		ContextEntries: contextEntries,
		Mode:           mode,
		KBFirst:        kbFirst,
	}

	var answer string
	err := c.exec.Execute(ctx, "kb answer", func(ctx context.Context) error {
		respBody, err := c.doPost(ctx, "/chat", body)
		if err != nil {
			return err
		}
		var resp answerResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		answer = resp.Answer
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

// Health checks the KB service health endpoint. No retries; callers poll.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("kb health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("service token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// doPost performs a single POST attempt. Status and transport errors are
// classified so the executor can decide whether to retry.
func (c *Client) doPost(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}
	return respBody, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
