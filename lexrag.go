// Package lexrag answers natural-language legal questions by retrieving
// supporting knowledge-base entries and deciding, per query, whether the
// evidence is trustworthy enough to answer KB-first or whether to fall
// back to a general LLM answer with that evidence attached as context.
package lexrag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lexragph/lexrag/classifier"
	"github.com/lexragph/lexrag/gate"
	"github.com/lexragph/lexrag/kb"
	"github.com/lexragph/lexrag/llm"
	"github.com/lexragph/lexrag/retrieval"
	"github.com/lexragph/lexrag/sqg"
	"github.com/lexragph/lexrag/store"
)

// Engine is the main entry point for knowledge-base question answering.
// All methods are safe for concurrent use, and the chat/search calls never
// fail: degraded outcomes come back as normal values.
type Engine interface {
	// ChatWithKnowledgeBase runs the full pipeline for one question.
	ChatWithKnowledgeBase(ctx context.Context, question, mode string, opts ...ChatOption) EnhancedRAGResponse

	// SearchKnowledgeBase runs a direct similarity search. Failures
	// degrade to an empty result.
	SearchKnowledgeBase(ctx context.Context, query string, limit int) []KnowledgeBaseEntry

	// Health reports whether the upstream KB service is reachable.
	Health(ctx context.Context) error

	// Close releases engine resources.
	Close() error
}

// ChatOption configures a single chat call.
type ChatOption func(*chatOptions)

type chatOptions struct {
	finalReport bool
}

// WithFinalReport marks the call as final-report generation, which forces
// retrieval in case-assessment mode for citation accuracy.
func WithFinalReport() ChatOption {
	return func(o *chatOptions) { o.finalReport = true }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg        Config
	kbClient   *kb.Client
	searcher   retrieval.Searcher
	retriever  *retrieval.Engine
	structurer *sqg.Structurer
	audit      *store.Store
}

// New creates a lexrag engine from configuration.
func New(cfg Config) (Engine, error) {
	if cfg.KBEnabled && cfg.KBBaseURL == "" {
		return nil, fmt.Errorf("%w: KB base URL required when the knowledge base is enabled", ErrInvalidConfig)
	}

	kbClient := kb.NewClient(kb.ClientConfig{
		BaseURL:     cfg.KBBaseURL,
		Secret:      cfg.KBAPISecret,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.retryBaseDelay(),
	})

	searcher := retrieval.NewCachedSearcher(kbClient, cfg.cacheTTL())
	retriever := retrieval.New(searcher, retrieval.Config{
		TopK:            cfg.TopK,
		SimilarityFloor: cfg.SimilarityThreshold,
		FastPathLimit:   cfg.FastPathLimit,
	})

	// A missing or misconfigured structuring provider is not fatal: the
	// structurer falls back to heuristics on every call.
	var provider llm.Provider
	if cfg.SQGEnabled {
		p, err := llm.NewProvider(cfg.Structuring)
		if err != nil {
			slog.Warn("sqg: structuring provider unavailable, heuristics only", "error", err)
		} else {
			provider = p
		}
	}
	structurer := sqg.New(provider, sqg.Config{
		Enabled:  cfg.SQGEnabled,
		Model:    cfg.SQGModel,
		CacheTTL: cfg.sqgCacheTTL(),
	})

	var audit *store.Store
	if cfg.AuditDBPath != "" {
		s, err := store.New(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("opening audit store: %w", err)
		}
		audit = s
	}

	return &engine{
		cfg:        cfg,
		kbClient:   kbClient,
		searcher:   searcher,
		retriever:  retriever,
		structurer: structurer,
		audit:      audit,
	}, nil
}

// ChatWithKnowledgeBase runs skip classification, query structuring,
// cascading retrieval, confidence gating, and response assembly. Every
// path, including upstream failure, returns a well-formed response.
func (e *engine) ChatWithKnowledgeBase(ctx context.Context, question, mode string, opts ...ChatOption) EnhancedRAGResponse {
	options := &chatOptions{}
	for _, o := range opts {
		o(options)
	}
	start := time.Now()

	if !e.cfg.KBEnabled {
		return e.record(ctx, question, mode, errorResponse("Knowledge base is disabled", MethodDisabled), "", false, 0)
	}
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return e.record(ctx, question, mode, errorResponse("Question is empty", MethodEmpty), "", false, 0)
	}

	if skip, reason := classifier.ShouldSkip(trimmed, mode, options.finalReport); skip {
		slog.Debug("chat: retrieval skipped", "reason", reason)
		return e.record(ctx, trimmed, mode, e.conversationalResponse(ctx, trimmed, mode), reason, false, 0)
	}

	sq, usedSQG := e.structurer.Generate(ctx, trimmed)

	entries, method, err := e.retriever.Retrieve(ctx, trimmed, sq)
	if err != nil {
		slog.Warn("chat: retrieval failed entirely", "error", err)
		return e.record(ctx, trimmed, mode, errorResponse("Knowledge base search failed", MethodError), "", usedSQG, 0)
	}

	confidence := gate.Score(entries, sq)
	threshold := gate.Threshold(sq, mode, e.cfg.ConfidenceBase)
	accepted := gate.Accept(confidence, threshold)

	slog.Info("chat: gate decision",
		"confidence", confidence, "threshold", threshold,
		"accepted", accepted, "method", method, "sources", len(entries),
		"elapsed", time.Since(start).Round(time.Millisecond))

	resp := e.assemble(ctx, trimmed, mode, entries, sq, assembleParams{
		confidence: confidence,
		accepted:   accepted,
		method:     method,
		usedSQG:    usedSQG,
	})
	return e.record(ctx, trimmed, mode, resp, "", usedSQG, threshold)
}

// SearchKnowledgeBase runs one vector search through the cache and retry
// layers, degrading to an empty slice on any failure.
func (e *engine) SearchKnowledgeBase(ctx context.Context, query string, limit int) []KnowledgeBaseEntry {
	if !e.cfg.KBEnabled || strings.TrimSpace(query) == "" {
		return []KnowledgeBaseEntry{}
	}
	if limit <= 0 {
		limit = e.cfg.TopK
	}
	entries, err := e.searcher.Search(ctx, kb.SearchParams{
		Query:  strings.TrimSpace(query),
		Limit:  limit,
		Method: kb.MethodVector,
	})
	if err != nil {
		slog.Warn("search: degraded to empty result", "error", err)
		return []KnowledgeBaseEntry{}
	}
	if entries == nil {
		entries = []KnowledgeBaseEntry{}
	}
	return entries
}

// Health checks the KB service.
func (e *engine) Health(ctx context.Context) error {
	if !e.cfg.KBEnabled {
		return ErrKBDisabled
	}
	return e.kbClient.Health(ctx)
}

// Close shuts down the engine.
func (e *engine) Close() error {
	if e.audit != nil {
		return e.audit.Close()
	}
	return nil
}

// record writes the decision audit row, best-effort, and passes the
// response through.
func (e *engine) record(ctx context.Context, question, mode string, resp EnhancedRAGResponse, skipReason string, usedSQG bool, threshold float64) EnhancedRAGResponse {
	if e.audit == nil {
		return resp
	}
	err := e.audit.LogDecision(ctx, store.Decision{
		Question:        question,
		Mode:            mode,
		Skipped:         skipReason != "",
		SkipReason:      skipReason,
		RetrievalMethod: resp.Metadata.RetrievalMethod,
		Sources:         len(resp.Sources),
		Confidence:      resp.Metadata.Confidence,
		Threshold:       threshold,
		KBFirst:         resp.Metadata.KBFirst,
		UsedSQG:         usedSQG,
		Error:           resp.Error,
	})
	if err != nil {
		slog.Warn("audit: decision log write failed", "error", err)
	}
	return resp
}
