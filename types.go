package lexrag

import (
	"github.com/lexragph/lexrag/kb"
	"github.com/lexragph/lexrag/sqg"
)

// KnowledgeBaseEntry is one retrievable unit of legal knowledge, as served
// by the external KB API.
type KnowledgeBaseEntry = kb.Entry

// StructuredQuery is the normalized representation of a question.
type StructuredQuery = sqg.StructuredQuery

// Retrieval method sentinels for terminal states. The per-strategy tags
// (vector, lexical, fast-path, hybrid, none) come from the retrieval
// package.
const (
	MethodDisabled = "disabled"
	MethodEmpty    = "empty"
	MethodError    = "error"
	MethodUnknown  = "unknown"
)

// CaseAssessmentMode is re-exported for callers driving interaction modes.
const CaseAssessmentMode = kb.CaseAssessmentMode

// HighConfidence is the floor for IsHighConfidence.
const HighConfidence = 0.7

// RAGMetadata describes how a response was produced. Construct with
// NewRAGMetadata so the invariants (clamped confidence, method default)
// hold.
type RAGMetadata struct {
	Confidence      float64  `json:"confidence"`
	KBFirst         bool     `json:"kb_first"`
	UsedSQG         bool     `json:"used_sqg"`
	UsedReranking   bool     `json:"used_reranking"`
	RetrievalMethod string   `json:"retrieval_method"`
	LegalTopics     []string `json:"legal_topics"`
}

// NewRAGMetadata builds metadata with confidence clamped to [0,1] and the
// retrieval method defaulted to "unknown".
func NewRAGMetadata(confidence float64, kbFirst, usedSQG, usedReranking bool, method string, topics []string) RAGMetadata {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if method == "" {
		method = MethodUnknown
	}
	if topics == nil {
		topics = []string{}
	}
	return RAGMetadata{
		Confidence:      confidence,
		KBFirst:         kbFirst,
		UsedSQG:         usedSQG,
		UsedReranking:   usedReranking,
		RetrievalMethod: method,
		LegalTopics:     topics,
	}
}

// EnhancedRAGResponse is the single result type for knowledge-base chat.
// Answer is never absent ("" is the null case), Sources may be empty but
// not nil, and Error is "" when nothing went wrong.
type EnhancedRAGResponse struct {
	Answer   string               `json:"answer"`
	Sources  []KnowledgeBaseEntry `json:"sources"`
	Metadata RAGMetadata          `json:"metadata"`
	Error    string               `json:"error,omitempty"`
}

// HasError reports whether the response carries an error.
func (r EnhancedRAGResponse) HasError() bool { return r.Error != "" }

// HasSources reports whether any KB entries back the response.
func (r EnhancedRAGResponse) HasSources() bool { return len(r.Sources) > 0 }

// IsHighConfidence reports whether confidence clears the high bar.
func (r EnhancedRAGResponse) IsHighConfidence() bool {
	return r.Metadata.Confidence >= HighConfidence
}

// IsKBFirst reports whether the KB evidence drove the answer directly.
func (r EnhancedRAGResponse) IsKBFirst() bool { return r.Metadata.KBFirst }
