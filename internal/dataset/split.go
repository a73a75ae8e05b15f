package dataset

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Split holds stratified train/test partitions of a table.
type Split struct {
	Train *Table
	Test  *Table
}

// StratifiedSplit partitions the table so each label keeps roughly testSize
// of its examples in the test set, with at least one test example per label.
// Deterministic for a fixed seed.
func StratifiedSplit(table *Table, testSize float64, seed int64) (*Split, error) {
	if err := CheckQuality(table); err != nil {
		return nil, err
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, fmt.Errorf("test size must be in (0,1), got %v", testSize)
	}

	byLabel := make(map[string][]int)
	order := make([]string, 0)
	for i, label := range table.Labels {
		if _, seen := byLabel[label]; !seen {
			order = append(order, label)
		}
		byLabel[label] = append(byLabel[label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	split := &Split{Train: &Table{}, Test: &Table{}}

	for _, label := range order {
		indices := byLabel[label]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTest := int(float64(len(indices)) * testSize)
		if nTest < 1 {
			nTest = 1
		}
		if nTest >= len(indices) {
			nTest = len(indices) - 1
		}

		for k, idx := range indices {
			dst := split.Train
			if k < nTest {
				dst = split.Test
			}
			dst.Features = append(dst.Features, table.Features[idx])
			dst.Labels = append(dst.Labels, table.Labels[idx])
		}
	}

	return split, nil
}

// Scaler standardises features to zero mean and unit variance. Parameters
// are fitted on the training split only and persisted in the model artifact
// so inference applies the identical transform.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-feature mean and standard deviation.
func FitScaler(features [][]float64) *Scaler {
	if len(features) == 0 {
		return &Scaler{}
	}
	width := len(features[0])
	scaler := &Scaler{Mean: make([]float64, width), Std: make([]float64, width)}

	column := make([]float64, len(features))
	for j := 0; j < width; j++ {
		for i, row := range features {
			column[i] = row[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || len(features) < 2 {
			std = 1
		}
		scaler.Mean[j] = mean
		scaler.Std[j] = std
	}
	return scaler
}

// Transform returns a scaled copy of the vector.
func (s *Scaler) Transform(vector []float64) []float64 {
	if len(s.Mean) != len(vector) {
		// Unfitted scaler passes vectors through unchanged.
		return append([]float64(nil), vector...)
	}
	out := make([]float64, len(vector))
	for j, val := range vector {
		out[j] = (val - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll scales every row.
func (s *Scaler) TransformAll(features [][]float64) [][]float64 {
	out := make([][]float64, len(features))
	for i, row := range features {
		out[i] = s.Transform(row)
	}
	return out
}
