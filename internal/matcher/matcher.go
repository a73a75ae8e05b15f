// Package matcher resolves free-form symptom input against the controlled
// vocabulary. It is a pure function of input plus vocabulary: malformed user
// input degrades to unresolved entries with suggestions, never an error.
package matcher

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/healthstack/diagnosis-engine/internal/models"
	"github.com/healthstack/diagnosis-engine/internal/vocab"
)

// Similarity scores how close two normalised phrases are, in [0,1].
// Implementations must be deterministic and total.
type Similarity interface {
	Score(a, b string) float64
}

// LevenshteinSimilarity scores by normalised edit distance.
type LevenshteinSimilarity struct{}

// Score returns 1 - dist/maxLen. Two empty strings score 1.
func (LevenshteinSimilarity) Score(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// Options tune the acceptance policy. A miss whose best similarity clears
// AcceptThreshold is auto-accepted as that vocabulary token; anything below
// becomes unresolved with up to MaxSuggestions suggestions scoring at least
// SuggestThreshold.
type Options struct {
	AcceptThreshold  float64
	SuggestThreshold float64
	MaxSuggestions   int
}

// DefaultOptions mirror the permissive cutoffs the prediction pipeline was
// tuned with: auto-accept at 0.60, suggest down to 0.40, three suggestions.
func DefaultOptions() Options {
	return Options{AcceptThreshold: 0.6, SuggestThreshold: 0.4, MaxSuggestions: 3}
}

// Matcher is immutable and safe for concurrent use.
type Matcher struct {
	vocab *vocab.Vocabulary
	sim   Similarity
	opts  Options
}

// New builds a Matcher over the vocabulary. A nil similarity falls back to
// Levenshtein; zero-valued options fall back to defaults.
func New(v *vocab.Vocabulary, sim Similarity, opts Options) *Matcher {
	if sim == nil {
		sim = LevenshteinSimilarity{}
	}
	def := DefaultOptions()
	if opts.AcceptThreshold <= 0 || opts.AcceptThreshold > 1 {
		opts.AcceptThreshold = def.AcceptThreshold
	}
	if opts.SuggestThreshold <= 0 || opts.SuggestThreshold > 1 {
		opts.SuggestThreshold = def.SuggestThreshold
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = def.MaxSuggestions
	}
	return &Matcher{vocab: v, sim: sim, opts: opts}
}

// SplitInput breaks a raw free-text input into candidate symptom phrases.
func SplitInput(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	phrases := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			phrases = append(phrases, f)
		}
	}
	return phrases
}

// MatchText splits raw text on commas/semicolons/newlines and matches the
// resulting phrases.
func (m *Matcher) MatchText(raw string) models.MatchReport {
	return m.Match(SplitInput(raw))
}

// Match resolves each phrase against the vocabulary. The resolved list is
// deduplicated preserving first-seen order; empty input yields an empty
// report.
func (m *Matcher) Match(phrases []string) models.MatchReport {
	report := models.MatchReport{Resolved: []string{}}
	seen := make(map[string]struct{})

	for _, phrase := range phrases {
		token := vocab.Normalize(phrase)
		if token == "" {
			continue
		}

		if m.vocab.Contains(token) {
			if _, dup := seen[token]; !dup {
				seen[token] = struct{}{}
				report.Resolved = append(report.Resolved, token)
			}
			continue
		}

		best, candidates := m.rank(token)
		if len(candidates) > 0 && best >= m.opts.AcceptThreshold {
			accepted := candidates[0]
			if _, dup := seen[accepted]; !dup {
				seen[accepted] = struct{}{}
				report.Resolved = append(report.Resolved, accepted)
			}
			continue
		}

		report.Unresolved = append(report.Unresolved, models.UnresolvedSymptom{
			Input:       token,
			Suggestions: candidates,
		})
	}

	return report
}

type scored struct {
	token string
	index int
	score float64
}

// rank returns the best similarity score and the suggestion candidates above
// the suggest threshold, ties broken by vocabulary order.
func (m *Matcher) rank(token string) (float64, []string) {
	all := make([]scored, 0, 8)
	for i, candidate := range m.vocab.Tokens() {
		s := m.sim.Score(token, candidate)
		if s >= m.opts.SuggestThreshold {
			all = append(all, scored{token: candidate, index: i, score: s})
		}
	}
	if len(all) == 0 {
		return 0, nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].index < all[j].index
	})

	limit := m.opts.MaxSuggestions
	if len(all) < limit {
		limit = len(all)
	}
	suggestions := make([]string, limit)
	for i := 0; i < limit; i++ {
		suggestions[i] = all[i].token
	}
	return all[0].score, suggestions
}
