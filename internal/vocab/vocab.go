// Package vocab holds the closed, ordered set of symptom tokens the system
// can recognise, together with their severity weights. The token order is
// load-time fixed and defines feature-vector index assignment; it is
// persisted inside the model artifact so training and inference agree.
package vocab

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/healthstack/diagnosis-engine/internal/models"
)

// Vocabulary is immutable after construction and safe for concurrent readers.
type Vocabulary struct {
	tokens  []string
	weights map[string]float64
	indices map[string]int
}

// New builds a Vocabulary from token/weight pairs. Tokens are normalised,
// deduplicated and sorted so the feature order is stable regardless of the
// source ordering.
func New(weights map[string]float64) (*Vocabulary, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	normalised := make(map[string]float64, len(weights))
	for token, weight := range weights {
		token = Normalize(token)
		if token == "" {
			continue
		}
		if weight < 0 {
			return nil, fmt.Errorf("symptom %q has negative weight %v", token, weight)
		}
		normalised[token] = weight
	}
	if len(normalised) == 0 {
		return nil, fmt.Errorf("vocabulary has no usable tokens")
	}

	tokens := make([]string, 0, len(normalised))
	for token := range normalised {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	indices := make(map[string]int, len(tokens))
	for i, token := range tokens {
		indices[token] = i
	}

	return &Vocabulary{tokens: tokens, weights: normalised, indices: indices}, nil
}

// FromOrdered rebuilds a Vocabulary from an already-ordered token list, as
// persisted in a model artifact. The given order is preserved verbatim.
func FromOrdered(tokens []string, weights map[string]float64) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	indices := make(map[string]int, len(tokens))
	kept := make([]string, len(tokens))
	w := make(map[string]float64, len(tokens))
	for i, token := range tokens {
		if token == "" {
			return nil, fmt.Errorf("vocabulary token %d is empty", i)
		}
		if _, dup := indices[token]; dup {
			return nil, fmt.Errorf("vocabulary token %q is duplicated", token)
		}
		indices[token] = i
		kept[i] = token
		w[token] = weights[token]
	}
	return &Vocabulary{tokens: kept, weights: w, indices: indices}, nil
}

// Load reads a severity CSV with a "Symptom,weight" header.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open severity file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads severity rows from r. The first row is treated as a header.
func Parse(r io.Reader) (*Vocabulary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read severity csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("severity csv has no data rows")
	}

	weights := make(map[string]float64, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		token := Normalize(row[0])
		if token == "" {
			continue
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("severity row %d: weight %q: %w", i+2, row[1], err)
		}
		weights[token] = weight
	}

	return New(weights)
}

// Normalize canonicalises a symptom phrase: lowercase, underscores to
// spaces, internal whitespace collapsed.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Size returns the number of tokens, which equals the feature-vector width.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Tokens returns a copy of the ordered token list.
func (v *Vocabulary) Tokens() []string {
	return append([]string(nil), v.tokens...)
}

// Index reports the feature index of a token.
func (v *Vocabulary) Index(token string) (int, bool) {
	i, ok := v.indices[token]
	return i, ok
}

// Contains reports whether the token is part of the vocabulary.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.indices[token]
	return ok
}

// Weight returns the severity weight of a token, defaulting to 1 for
// vocabulary members without an explicit weight.
func (v *Vocabulary) Weight(token string) float64 {
	if w, ok := v.weights[token]; ok && w > 0 {
		return w
	}
	if v.Contains(token) {
		return 1
	}
	return 0
}

// Weights returns a copy of the token-to-weight map.
func (v *Vocabulary) Weights() map[string]float64 {
	out := make(map[string]float64, len(v.weights))
	for k, w := range v.weights {
		out[k] = w
	}
	return out
}

// List returns ordered (token, weight) pairs for introspection endpoints.
func (v *Vocabulary) List() []models.SymptomWeight {
	out := make([]models.SymptomWeight, len(v.tokens))
	for i, token := range v.tokens {
		out[i] = models.SymptomWeight{Symptom: token, Weight: v.weights[token]}
	}
	return out
}
