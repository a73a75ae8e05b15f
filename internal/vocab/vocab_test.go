package vocab

import (
	"strings"
	"testing"
)

func TestParseOrdersAndNormalises(t *testing.T) {
	csv := "Symptom,weight\nHigh_Fever,7\n headache ,3\nchills,3\n"
	v, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []string{"chills", "headache", "high fever"}
	got := v.Tokens()
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if w := v.Weight("high fever"); w != 7 {
		t.Fatalf("expected weight 7, got %v", w)
	}
	if idx, ok := v.Index("headache"); !ok || idx != 1 {
		t.Fatalf("expected headache at index 1, got %d ok=%v", idx, ok)
	}
}

func TestParseRejectsEmptyAndBadWeight(t *testing.T) {
	if _, err := Parse(strings.NewReader("Symptom,weight\n")); err == nil {
		t.Fatal("expected error for empty severity file")
	}
	if _, err := Parse(strings.NewReader("Symptom,weight\nfever,abc\n")); err == nil {
		t.Fatal("expected error for unparsable weight")
	}
	if _, err := New(map[string]float64{"fever": -1}); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestFromOrderedPreservesOrder(t *testing.T) {
	tokens := []string{"fever", "chills", "headache"}
	v, err := FromOrdered(tokens, map[string]float64{"fever": 2, "chills": 3, "headache": 1})
	if err != nil {
		t.Fatalf("from ordered: %v", err)
	}
	got := v.Tokens()
	for i := range tokens {
		if got[i] != tokens[i] {
			t.Fatalf("order not preserved at %d: %q", i, got[i])
		}
	}

	if _, err := FromOrdered([]string{"fever", "fever"}, nil); err == nil {
		t.Fatal("expected duplicate token error")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  High_Fever  ":    "high fever",
		"stomach   pain":    "stomach pain",
		"RUNNY_NOSE":        "runny nose",
		"":                  "",
		"   \t  ":           "",
		"joint_pain_severe": "joint pain severe",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
