// Package classifier provides the model-family registry and the pure-Go
// classifier implementations the trainer compares. Adding a family means
// registering a new Factory, not branching on type.
package classifier

import (
	"fmt"
	"math"
	"sort"
)

// Params carries numeric hyperparameters for a model family.
type Params map[string]float64

// Get returns the parameter value or def when absent.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns the parameter as an int or def when absent.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return def
}

// Clone returns a copy of the parameter set.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Model is the capability interface every classifier family implements.
// Fit consumes encoded feature rows and integer labels in [0, numClasses);
// PredictProba returns a probability estimate per class, summing to ~1.
type Model interface {
	Name() string
	Fit(X [][]float64, y []int, numClasses int) error
	PredictProba(x []float64) []float64
}

// Factory constructs an unfitted model with the given hyperparameters.
type Factory func(params Params) Model

// Registry maps family names to constructors in registration order.
type Registry struct {
	names     []string
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a family; duplicate names are rejected.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("classifier: invalid registration for %q", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("classifier: family %q already registered", name)
	}
	r.names = append(r.names, name)
	r.factories[name] = factory
	return nil
}

// New constructs an unfitted model of the named family.
func (r *Registry) New(name string, params Params) (Model, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("classifier: unknown family %q", name)
	}
	return factory(params), nil
}

// Families returns the registered family names, sorted for determinism.
func (r *Registry) Families() []string {
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

// Family names used by the default registry.
const (
	FamilyRandomForest     = "random-forest"
	FamilyGradientBoosting = "gradient-boosting"
	FamilyLogistic         = "logistic-regression"
	FamilyLinearSVM        = "linear-svm"
)

// DefaultRegistry registers the four stock families.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FamilyRandomForest, func(p Params) Model { return NewRandomForest(p) })
	r.Register(FamilyGradientBoosting, func(p Params) Model { return NewGradientBoosting(p) })
	r.Register(FamilyLogistic, func(p Params) Model { return NewLogisticRegression(p) })
	r.Register(FamilyLinearSVM, func(p Params) Model { return NewLinearSVM(p) })
	return r
}

// softmax normalises scores into a probability distribution in place-safe
// fashion.
func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	if sum == 0 {
		uniform := 1 / float64(len(scores))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the index of the largest value, lowest index on ties.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
