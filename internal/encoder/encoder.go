// Package encoder converts a resolved symptom set into the fixed-width
// numeric vector the classifiers consume. Callers must pass vocabulary
// members only; the matcher guarantees that upstream.
package encoder

import (
	"errors"
	"fmt"

	"github.com/healthstack/diagnosis-engine/internal/vocab"
)

// ErrInvalidFeature signals an out-of-vocabulary token reaching the encoder,
// which is a bug in the composing code rather than a user-input condition.
var ErrInvalidFeature = errors.New("encoder: token outside vocabulary")

// Encoding names how presence is represented in the feature vector. It is
// recorded in the model artifact so trainer and predictor agree.
const (
	EncodingSeverityWeighted = "severity-weighted"
	EncodingBinary           = "binary"
)

// Encoder is immutable and safe for concurrent use.
type Encoder struct {
	vocab    *vocab.Vocabulary
	encoding string
}

// New builds an Encoder. Unknown encoding names are rejected so a mismatched
// artifact fails loudly at load time instead of producing skewed vectors.
func New(v *vocab.Vocabulary, encoding string) (*Encoder, error) {
	switch encoding {
	case EncodingSeverityWeighted, EncodingBinary:
	case "":
		encoding = EncodingSeverityWeighted
	default:
		return nil, fmt.Errorf("unknown feature encoding %q", encoding)
	}
	return &Encoder{vocab: v, encoding: encoding}, nil
}

// Encoding returns the active encoding name.
func (e *Encoder) Encoding() string { return e.encoding }

// Width returns the feature-vector length, equal to the vocabulary size.
func (e *Encoder) Width() int { return e.vocab.Size() }

// Encode produces the feature vector for a set of vocabulary tokens.
// Identical token sets produce bit-identical vectors; an empty set yields an
// all-zero vector of full width.
func (e *Encoder) Encode(tokens []string) ([]float64, error) {
	vector := make([]float64, e.vocab.Size())
	for _, token := range tokens {
		idx, ok := e.vocab.Index(token)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFeature, token)
		}
		switch e.encoding {
		case EncodingBinary:
			vector[idx] = 1
		default:
			vector[idx] = e.vocab.Weight(token)
		}
	}
	return vector, nil
}
