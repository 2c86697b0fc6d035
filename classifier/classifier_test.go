package classifier

import (
	"testing"

	"github.com/lexragph/lexrag/kb"
)

func TestShouldSkipConversational(t *testing.T) {
	tests := []struct {
		query  string
		reason string
	}{
		{"", ReasonEmpty},
		{"   ", ReasonEmpty},
		{"hello", ReasonGreeting},
		{"Hi!", ReasonGreeting},
		{"good morning", ReasonGreeting},
		{"kumusta", ReasonGreeting},
		{"bye", ReasonFarewell},
		{"thank you so much", ReasonFarewell},
		{"salamat po", ReasonFarewell},
		{"who are you?", ReasonIdentity},
		{"are you a lawyer?", ReasonIdentity},
		{"what can you do", ReasonIdentity},
		{"how do I use this?", ReasonUsage},
		{"ok", ReasonAcknowledgment},
		{"got it!", ReasonAcknowledgment},
		{"sige", ReasonAcknowledgment},
		{"how much is the subscription?", ReasonPlatform},
		{"is this app free to sign up?", ReasonPlatform},
		{"what is the law?", ReasonOverview},
		{"how does the Philippine legal system work", ReasonOverview},
		{"2 + 2", ReasonNonLegal},
		{"best adobo recipe", ReasonNonLegal},
		{"what's the weather tomorrow", ReasonNonLegal},
		{"not yet", ReasonConversational},
		{"maybe next week", ReasonConversational},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			skip, reason := ShouldSkip(tt.query, "", false)
			if !skip {
				t.Fatalf("ShouldSkip(%q) = false, want skip", tt.query)
			}
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestShouldNotSkipLegalQuestions(t *testing.T) {
	queries := []string{
		"What is the penalty for theft under Article 308?",
		"Can my landlord evict me without a court order?",
		"hello, what does Rule 45 cover?", // citation overrides the greeting
		"Is overtime pay required under the Labor Code?",
		"thanks, and what does Section 5 say?",
		"my neighbor built a fence on my property, what can I do",
		"what does jurisprudence say about psychological incapacity",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			if skip, reason := ShouldSkip(q, "", false); skip {
				t.Errorf("ShouldSkip(%q) = true (%s), want retrieval", q, reason)
			}
		})
	}
}

func TestShouldSkipFinalReportForcesRetrieval(t *testing.T) {
	// Even a pure greeting goes through retrieval when generating the
	// final case-assessment report.
	if skip, _ := ShouldSkip("hello", kb.CaseAssessmentMode, true); skip {
		t.Error("final report in case assessment must never skip")
	}

	// Outside case assessment the flag has no effect.
	if skip, _ := ShouldSkip("hello", "general", true); !skip {
		t.Error("final report outside case assessment still skips greetings")
	}
}

func TestShouldSkipLengthGates(t *testing.T) {
	// "ok" style words embedded in a long sentence are not acknowledgments.
	long := "ok so here is my situation with my employer withholding my pay"
	if skip, _ := ShouldSkip(long, "", false); skip {
		t.Errorf("ShouldSkip(%q) = true, want retrieval", long)
	}

	// Short-answer patterns only apply to short messages.
	longAnswer := "yes, my employer has been refusing to release my back wages since last March and I want to know my options"
	if skip, _ := ShouldSkip(longAnswer, "", false); skip {
		t.Errorf("ShouldSkip(%q) = true, want retrieval", longAnswer)
	}
}
