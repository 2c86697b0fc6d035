package sqg

import (
	"regexp"
	"strings"
)

// stopwords dropped during keyword extraction. Short function words only;
// legal vocabulary stays.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "his": true,
	"has": true, "had": true, "how": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "why": true, "will": true,
	"with": true, "this": true, "that": true, "they": true, "there": true,
	"their": true, "would": true, "could": true, "should": true,
	"does": true, "did": true, "about": true, "into": true, "from": true,
	"have": true, "been": true, "were": true, "being": true, "than": true,
	"then": true, "them": true, "these": true, "those": true,
}

// topicVocabulary maps substring cues to legal topic labels.
var topicVocabulary = []struct {
	cue   string
	topic string
}{
	{"criminal procedure", "criminal procedure"},
	{"crime", "criminal"},
	{"criminal", "criminal"},
	{"theft", "criminal"},
	{"estafa", "criminal"},
	{"murder", "criminal"},
	{"homicide", "criminal"},
	{"penalty", "criminal"},
	{"contract", "civil"},
	{"damages", "civil"},
	{"obligation", "civil"},
	{"property", "civil"},
	{"lease", "civil"},
	{"landlord", "civil"},
	{"evict", "civil"},
	{"marriage", "family"},
	{"annulment", "family"},
	{"custody", "family"},
	{"support", "family"},
	{"adoption", "family"},
	{"employment", "labor"},
	{"employer", "labor"},
	{"employee", "labor"},
	{"dismissal", "labor"},
	{"wage", "labor"},
	{"overtime", "labor"},
	{"procedure", "procedural"},
	{"procedural", "procedural"},
	{"appeal", "procedural"},
	{"motion", "procedural"},
	{"pleading", "procedural"},
	{"file a case", "procedural"},
}

// statutePatterns detects statute-like tokens: "Rule 45", "Art. 308",
// "Article 308".
var statutePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bRule\s+\d+[\w.-]*`),
	regexp.MustCompile(`(?i)\bArt(?:icle)?\.?\s+\d+[\w.-]*`),
}

// urgencyCues bump the heuristic urgency to high. Kept deliberately short:
// the cheap path should rarely claim urgency it cannot justify.
var urgencyCues = []string{
	"urgent", "arrested", "detained", "warrant", "deadline", "tomorrow",
	"right now", "immediately",
}

// Fallback builds a structured query with rule-based heuristics alone.
// Used when LLM structuring is disabled, unavailable, or unparseable.
func Fallback(question string) StructuredQuery {
	trimmed := strings.TrimSpace(question)
	lower := strings.ToLower(trimmed)

	q := StructuredQuery{
		NormalizedQuestion: trimmed,
		Jurisdiction:       DefaultJurisdiction,
		Urgency:            UrgencyLow,
	}

	// Keywords: whitespace tokens minus stopwords and short words.
	for _, tok := range strings.Fields(lower) {
		tok = strings.Trim(tok, ".,!?;:\"'()[]")
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		q.Keywords = append(q.Keywords, tok)
	}

	// Topics: substring match against the fixed vocabulary, first label
	// per topic wins.
	seen := map[string]bool{}
	for _, tv := range topicVocabulary {
		if strings.Contains(lower, tv.cue) && !seen[tv.topic] {
			seen[tv.topic] = true
			q.LegalTopics = append(q.LegalTopics, tv.topic)
		}
	}

	// Statute references keep their original casing.
	seenStatute := map[string]bool{}
	for _, p := range statutePatterns {
		for _, m := range p.FindAllString(trimmed, -1) {
			m = strings.TrimSpace(m)
			key := strings.ToLower(m)
			if !seenStatute[key] {
				seenStatute[key] = true
				q.StatutesReferenced = append(q.StatutesReferenced, m)
			}
		}
	}

	for _, cue := range urgencyCues {
		if strings.Contains(lower, cue) {
			q.Urgency = UrgencyHigh
			break
		}
	}

	q.normalize()
	return q
}
