package lexrag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexragph/lexrag/kb"
	"github.com/lexragph/lexrag/retrieval"
	"github.com/lexragph/lexrag/sqg"
)

type assembleParams struct {
	confidence float64
	accepted   bool
	method     string
	usedSQG    bool
}

// assemble turns a gate decision into the final response. An accepted
// decision answers KB-first with the retrieved entries as grounding
// context; a rejected one returns a hedged answer that still carries the
// entries as citations for the caller.
func (e *engine) assemble(ctx context.Context, question, mode string, entries []kb.Entry, sq sqg.StructuredQuery, p assembleParams) EnhancedRAGResponse {
	meta := NewRAGMetadata(p.confidence, p.accepted, p.usedSQG, p.method == retrieval.MethodHybrid, p.method, sq.LegalTopics)

	if p.accepted {
		answer, err := e.kbClient.Answer(ctx, question, entries, mode, true)
		if err == nil {
			return EnhancedRAGResponse{Answer: answer, Sources: entries, Metadata: meta}
		}
		slog.Warn("assemble: KB-first answer failed, hedging", "error", err)
	}

	meta.KBFirst = false
	return EnhancedRAGResponse{
		Answer:   hedgedAnswer(p.confidence, len(entries)),
		Sources:  entries,
		Metadata: meta,
	}
}

// conversationalResponse answers skipped queries without retrieval. The
// upstream chat endpoint still generates the reply so greetings and
// platform questions get a natural answer.
func (e *engine) conversationalResponse(ctx context.Context, question, mode string) EnhancedRAGResponse {
	answer, err := e.kbClient.Answer(ctx, question, nil, mode, false)
	if err != nil {
		slog.Warn("assemble: conversational answer failed", "error", err)
		return errorResponse("Assistant is temporarily unavailable", MethodError)
	}
	return EnhancedRAGResponse{
		Answer:   answer,
		Sources:  []kb.Entry{},
		Metadata: NewRAGMetadata(0, false, false, false, retrieval.MethodNone, nil),
	}
}

// hedgedAnswer states how confident the retrieval evidence is and points
// the user to professional advice instead of asserting a legal conclusion.
func hedgedAnswer(confidence float64, sourceCount int) string {
	pct := int(confidence*100 + 0.5)
	if sourceCount == 0 {
		return fmt.Sprintf("I could not find knowledge base entries that directly address your question "+
			"(retrieval confidence %d%%). I can offer general information only, so please consult a "+
			"licensed attorney for advice on your specific situation.", pct)
	}
	return fmt.Sprintf("I found %d potentially related knowledge base entries, but my confidence that they "+
		"answer your question is only %d%%. The cited materials below may be a starting point, but please "+
		"consult a licensed attorney before relying on them for your specific situation.", sourceCount, pct)
}

// errorResponse builds the degraded response for paths that never reach
// the gate. Answer stays empty so callers can distinguish it from a
// hedged result.
func errorResponse(message, method string) EnhancedRAGResponse {
	return EnhancedRAGResponse{
		Sources:  []kb.Entry{},
		Metadata: NewRAGMetadata(0, false, false, false, method, nil),
		Error:    message,
	}
}
