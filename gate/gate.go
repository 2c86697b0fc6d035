// Package gate scores retrieved evidence for trustworthiness and decides
// between KB-first answering and the hedged fallback. Scoring is a small
// additive heuristic clamped to [0,1]; thresholds come from a
// priority-ordered rule table evaluated per query.
package gate

import (
	"strings"

	"github.com/lexragph/lexrag/kb"
	"github.com/lexragph/lexrag/sqg"
)

// DefaultBase is the starting acceptance threshold before per-query
// adjustment.
const DefaultBase = 0.18

// Score computes a confidence in [0,1] for the entry set against the
// structured query. Base score blends the best and average similarity;
// citation and topic agreement add fixed boosts. Boosts are additive and
// only the final clamp bounds the result.
func Score(entries []kb.Entry, sq sqg.StructuredQuery) float64 {
	if len(entries) == 0 {
		return 0
	}

	var maxSim, sum float64
	for _, e := range entries {
		s := e.SimilarityOrZero()
		sum += s
		if s > maxSim {
			maxSim = s
		}
	}
	avgSim := sum / float64(len(entries))

	score := maxSim * 0.9
	if avg := avgSim * 0.8; avg > score {
		score = avg
	}

	if citationMatch(entries, sq.StatutesReferenced) {
		score += 0.2
	}
	if topicMatch(entries, sq.LegalTopics) {
		score += 0.1
	}

	return clamp(score)
}

// citationMatch reports whether any entry's canonical citation contains a
// referenced statute, case-insensitively.
func citationMatch(entries []kb.Entry, statutes []string) bool {
	if len(statutes) == 0 {
		return false
	}
	for _, e := range entries {
		citation := strings.ToLower(e.CanonicalCitation)
		if citation == "" {
			continue
		}
		for _, s := range statutes {
			if s != "" && strings.Contains(citation, strings.ToLower(s)) {
				return true
			}
		}
	}
	return false
}

// topicMatch reports whether any entry tag substring-overlaps a detected
// legal topic in either direction, case-insensitively.
func topicMatch(entries []kb.Entry, topics []string) bool {
	if len(topics) == 0 {
		return false
	}
	for _, e := range entries {
		for _, tag := range e.Tags {
			lowTag := strings.ToLower(tag)
			if lowTag == "" {
				continue
			}
			for _, topic := range topics {
				lowTopic := strings.ToLower(topic)
				if lowTopic == "" {
					continue
				}
				if strings.Contains(lowTag, lowTopic) || strings.Contains(lowTopic, lowTag) {
					return true
				}
			}
		}
	}
	return false
}

// thresholdRule adjusts the base threshold for one query profile.
type thresholdRule struct {
	name    string
	applies func(sq sqg.StructuredQuery, mode string) bool
	adjust  func(base float64) float64
}

// thresholdRules is priority-ordered; the first matching rule wins and the
// adjustments are never combined.
var thresholdRules = []thresholdRule{
	{
		name: "statute reference",
		applies: func(sq sqg.StructuredQuery, _ string) bool {
			return len(sq.StatutesReferenced) > 0
		},
		adjust: func(base float64) float64 { return floorAt(0.12, base*0.7) },
	},
	{
		name: "high urgency",
		applies: func(sq sqg.StructuredQuery, _ string) bool {
			return sq.Urgency == sqg.UrgencyHigh
		},
		adjust: func(base float64) float64 { return floorAt(0.14, base*0.8) },
	},
	{
		name: "procedural query",
		applies: func(sq sqg.StructuredQuery, _ string) bool {
			for _, t := range sq.LegalTopics {
				low := strings.ToLower(t)
				if strings.Contains(low, "procedural") || strings.Contains(low, "process") {
					return true
				}
			}
			return false
		},
		adjust: func(base float64) float64 { return floorAt(0.08, base*0.5) },
	},
	{
		name: "case assessment",
		applies: func(_ sqg.StructuredQuery, mode string) bool {
			return mode == kb.CaseAssessmentMode
		},
		adjust: func(base float64) float64 { return floorAt(0.10, base*0.8) },
	},
}

// Threshold computes the per-query acceptance threshold from the base.
func Threshold(sq sqg.StructuredQuery, mode string, base float64) float64 {
	if base <= 0 {
		base = DefaultBase
	}
	for _, rule := range thresholdRules {
		if rule.applies(sq, mode) {
			return rule.adjust(base)
		}
	}
	return base
}

// Accept reports whether confidence clears the threshold. The boundary is
// inclusive.
func Accept(confidence, threshold float64) bool {
	return confidence >= threshold
}

func floorAt(floor, v float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
