// Package classifier is the cost-control pre-filter in front of retrieval.
// It decides from fixed pattern lists whether a query needs KB evidence at
// all, and is deliberately conservative: any explicit legal-citation
// vocabulary forces retrieval no matter how conversational the query looks.
package classifier

import (
	"regexp"
	"strings"

	"github.com/lexragph/lexrag/kb"
)

// Skip reasons, also used for audit logging.
const (
	ReasonEmpty          = "Empty query"
	ReasonGreeting       = "Greeting"
	ReasonFarewell       = "Farewell"
	ReasonIdentity       = "Identity question"
	ReasonUsage          = "Usage question"
	ReasonAcknowledgment = "Acknowledgment"
	ReasonPlatform       = "Platform question"
	ReasonOverview       = "Legal system overview"
	ReasonNonLegal       = "Non-legal question"
	ReasonConversational = "Conversational fragment"
)

// kbRequiredIndicators force retrieval when present anywhere in the query.
// Explicit citation vocabulary means the user expects grounded answers.
var kbRequiredIndicators = []string{
	"article", "section", "rule ", "republic act", "r.a.", "ra no",
	"penal code", "civil code", "labor code", "family code",
	"rules of court", "revised penal", "jurisprudence", "penalty for",
	"statute", "supreme court", "constitution", "ordinance", "decree",
	"batas pambansa", "presidential decree",
}

var greetingRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|good\s+(morning|afternoon|evening|day)|kumusta|kamusta|magandang\s+\w+)\b[\s!.,]*$`)

var farewellRe = regexp.MustCompile(`(?i)^\s*(bye|goodbye|good\s*night|see\s+you|thank(s| you)?( so much| very much)?|salamat( po)?|ingat)\b[\s!.,]*`)

var identityRe = regexp.MustCompile(`(?i)\b(who|what)\s+are\s+you\b|\bwhat\s+can\s+you\s+do\b|\bare\s+you\s+(an?\s+)?(human|real|ai|robot|lawyer)\b|\byour\s+name\b`)

var usageRe = regexp.MustCompile(`(?i)\bhow\s+(do\s+i|to|does\s+(this|it))\s+(use|work|start)\b|\bhow\s+do\s+i\s+use\b|\bgetting\s+started\b`)

var acknowledgmentRe = regexp.MustCompile(`(?i)^\s*(ok(ay)?|sure|yes|yep|no|nope|got\s+it|i\s+see|alright|noted|nice|great|thanks|sige|oo|hindi|cge)[\s!.,]*$`)

var platformRe = regexp.MustCompile(`(?i)\b(this|the)\s+(app|website|platform|site|chatbot)\b|\b(subscription|pricing|sign\s*up|log\s*in|account\s+settings)\b`)

var overviewRe = regexp.MustCompile(`(?i)\bwhat\s+is\s+(law|a\s+law|the\s+law)\s*\??$|\b(how\s+does|what\s+is)\s+the\s+(philippine\s+)?legal\s+system\b|\btypes\s+of\s+law\b`)

// arithmeticRe flags pure calculator input: digits and operators only,
// with at least one operator between numbers.
var arithmeticRe = regexp.MustCompile(`^\s*\d[\d\s]*[+\-*/^][\d\s+\-*/^().=?]*$`)

var offTopicKeywords = []string{
	"recipe", "cooking", "weather", "horoscope", "movie", "song",
	"lyrics", "basketball", "football", "video game", "celebrity",
	"stock price", "crypto", "bitcoin", "travel itinerary",
}

// shortAnswerRe matches common short conversational replies: affirmations,
// negations, time references.
var shortAnswerRe = regexp.MustCompile(`(?i)^\s*(yes|no|maybe|not\s+yet|i\s+think\s+so|later|tomorrow|today|yesterday|next\s+(week|month)|last\s+(week|month|year)|in\s+a\s+(bit|moment))\b`)

// ShouldSkip decides whether retrieval can be skipped for the query.
// Rules run in fixed precedence and the first match wins. It is a pure
// function over the fixed pattern lists above; no I/O.
func ShouldSkip(query, mode string, finalReport bool) (bool, string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return true, ReasonEmpty
	}

	// Final reports cite statutes verbatim; retrieval is mandatory for
	// citation accuracy.
	if finalReport && mode == kb.CaseAssessmentMode {
		return false, ""
	}

	lower := strings.ToLower(trimmed)
	for _, indicator := range kbRequiredIndicators {
		if strings.Contains(lower, indicator) {
			return false, ""
		}
	}

	switch {
	case greetingRe.MatchString(trimmed):
		return true, ReasonGreeting
	case farewellRe.MatchString(trimmed):
		return true, ReasonFarewell
	case identityRe.MatchString(trimmed):
		return true, ReasonIdentity
	case usageRe.MatchString(trimmed):
		return true, ReasonUsage
	case len(trimmed) <= 15 && acknowledgmentRe.MatchString(trimmed):
		return true, ReasonAcknowledgment
	case platformRe.MatchString(trimmed):
		return true, ReasonPlatform
	case overviewRe.MatchString(trimmed):
		return true, ReasonOverview
	case isNonLegal(lower):
		return true, ReasonNonLegal
	case len(trimmed) <= 50 && shortAnswerRe.MatchString(trimmed):
		return true, ReasonConversational
	}

	return false, ""
}

// isNonLegal flags arithmetic expressions and clearly off-topic subjects.
func isNonLegal(lower string) bool {
	if arithmeticRe.MatchString(lower) {
		return true
	}
	for _, kw := range offTopicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
