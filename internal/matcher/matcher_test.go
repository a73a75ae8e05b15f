package matcher

import (
	"testing"

	"github.com/healthstack/diagnosis-engine/internal/vocab"
)

func testVocabulary(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.New(map[string]float64{
		"fever":       5,
		"headache":    3,
		"chills":      3,
		"fatigue":     4,
		"sore throat": 2,
	})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	return v
}

func TestMatchExactTokensResolveRegardlessOfCaseAndOrder(t *testing.T) {
	m := New(testVocabulary(t), nil, Options{})

	for _, phrases := range [][]string{
		{"Fever", "Headache"},
		{"HEADACHE", "  fever  "},
	} {
		report := m.Match(phrases)
		if len(report.Unresolved) != 0 {
			t.Fatalf("expected no unresolved for %v, got %v", phrases, report.Unresolved)
		}
		if len(report.Resolved) != 2 {
			t.Fatalf("expected 2 resolved for %v, got %v", phrases, report.Resolved)
		}
	}
}

func TestMatchTextSplitsAndDeduplicates(t *testing.T) {
	m := New(testVocabulary(t), nil, Options{})

	report := m.MatchText("Fever, Headache; fever\nchills")
	want := []string{"fever", "headache", "chills"}
	if len(report.Resolved) != len(want) {
		t.Fatalf("expected %v, got %v", want, report.Resolved)
	}
	for i := range want {
		if report.Resolved[i] != want[i] {
			t.Fatalf("resolved[%d] = %q, want %q", i, report.Resolved[i], want[i])
		}
	}
}

func TestMatchFuzzyAutoAccept(t *testing.T) {
	m := New(testVocabulary(t), nil, Options{})

	// "feever" is one edit away from "fever": similarity 1 - 1/6 > 0.6.
	report := m.Match([]string{"feever"})
	if len(report.Resolved) != 1 || report.Resolved[0] != "fever" {
		t.Fatalf("expected feever to auto-accept as fever, got %+v", report)
	}
}

func TestMatchUnknownEverything(t *testing.T) {
	m := New(testVocabulary(t), nil, Options{})

	report := m.Match([]string{"zzz", "qqq"})
	if len(report.Resolved) != 0 {
		t.Fatalf("expected nothing resolved, got %v", report.Resolved)
	}
	if len(report.Unresolved) != 2 {
		t.Fatalf("expected 2 unresolved, got %v", report.Unresolved)
	}
	for _, u := range report.Unresolved {
		if len(u.Suggestions) > 3 {
			t.Fatalf("too many suggestions for %q: %v", u.Input, u.Suggestions)
		}
	}
}

func TestMatchEmptyInput(t *testing.T) {
	m := New(testVocabulary(t), nil, Options{})

	for _, report := range []struct {
		name string
		got  int
	}{
		{"empty slice", len(m.Match(nil).Resolved) + len(m.Match(nil).Unresolved)},
		{"empty text", len(m.MatchText("").Resolved) + len(m.MatchText("").Unresolved)},
		{"whitespace", len(m.MatchText("  , ;\n ").Resolved) + len(m.MatchText("  , ;\n ").Unresolved)},
	} {
		if report.got != 0 {
			t.Fatalf("%s: expected degenerate empty report", report.name)
		}
	}
}

func TestRankTiesBreakByVocabularyOrder(t *testing.T) {
	v, err := vocab.New(map[string]float64{"aaab": 1, "aaac": 1, "aaad": 1})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	m := New(v, nil, Options{})

	// "aaaz" is equidistant to all three; the suggestion order must follow
	// vocabulary order.
	report := m.Match([]string{"aaaz"})
	if len(report.Unresolved) == 1 {
		s := report.Unresolved[0].Suggestions
		if len(s) != 3 || s[0] != "aaab" || s[1] != "aaac" || s[2] != "aaad" {
			t.Fatalf("tie-break not deterministic: %v", s)
		}
	} else if len(report.Resolved) == 1 {
		// Auto-accepted: must pick the first in vocabulary order.
		if report.Resolved[0] != "aaab" {
			t.Fatalf("tie-break accepted %q, want aaab", report.Resolved[0])
		}
	} else {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestLevenshteinSimilarityTotal(t *testing.T) {
	sim := LevenshteinSimilarity{}
	if got := sim.Score("", ""); got != 1 {
		t.Fatalf("empty strings should score 1, got %v", got)
	}
	if got := sim.Score("abc", "abc"); got != 1 {
		t.Fatalf("identical strings should score 1, got %v", got)
	}
	if got := sim.Score("abc", "xyz"); got != 0 {
		t.Fatalf("disjoint strings should score 0, got %v", got)
	}
}
