package dataset

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/healthstack/diagnosis-engine/internal/vocab"
)

// Synthesize generates augmentation examples from the merged table. For each
// source row it emits samplesPerDisease new rows, each carrying a random
// half of the row's present symptoms (at least one) plus up to two noise
// symptoms the disease is not associated with. Deterministic for a fixed
// seed.
func Synthesize(table *Table, v *vocab.Vocabulary, samplesPerDisease int, seed int64) *Table {
	if table == nil || table.Len() == 0 || samplesPerDisease <= 0 {
		return &Table{}
	}

	rng := rand.New(rand.NewSource(seed))
	width := v.Size()
	out := &Table{}

	for i, row := range table.Features {
		present := make([]int, 0, width)
		absent := make([]int, 0, width)
		for idx, val := range row {
			if val > 0 {
				present = append(present, idx)
			} else {
				absent = append(absent, idx)
			}
		}
		if len(present) == 0 {
			continue
		}

		for s := 0; s < samplesPerDisease; s++ {
			keep := len(present) / 2
			if keep < 1 {
				keep = 1
			}
			sample := make([]float64, width)
			for _, idx := range pick(rng, present, keep) {
				sample[idx] = row[idx]
			}
			noise := 2
			if len(absent) < noise {
				noise = len(absent)
			}
			tokens := v.Tokens()
			for _, idx := range pick(rng, absent, noise) {
				sample[idx] = v.Weight(tokens[idx])
			}

			out.Features = append(out.Features, sample)
			out.Labels = append(out.Labels, table.Labels[i])
		}
	}

	shuffle(rng, out)
	return out
}

// pick returns k distinct elements of pool chosen uniformly.
func pick(rng *rand.Rand, pool []int, k int) []int {
	if k >= len(pool) {
		return append([]int(nil), pool...)
	}
	perm := rng.Perm(len(pool))
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

func shuffle(rng *rand.Rand, table *Table) {
	rng.Shuffle(table.Len(), func(i, j int) {
		table.Features[i], table.Features[j] = table.Features[j], table.Features[i]
		table.Labels[i], table.Labels[j] = table.Labels[j], table.Labels[i]
	})
}

// SaveSynthetic writes the augmentation rows as a symptom-list CSV, matching
// the shape consumers of the data directory expect.
func (p *Processor) SaveSynthetic(table *Table, v *vocab.Vocabulary, filename string) error {
	if filename == "" {
		filename = "synthetic_patient_data.csv"
	}
	path := filepath.Join(p.dataDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Disease", "Symptoms"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	tokens := v.Tokens()
	for i, row := range table.Features {
		names := make([]string, 0, 8)
		for idx, val := range row {
			if val > 0 {
				names = append(names, tokens[idx])
			}
		}
		if err := w.Write([]string{table.Labels[i], strings.Join(names, ", ")}); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	p.logger.Info("saved synthetic dataset", slog.String("path", path), slog.Int("records", table.Len()))
	return nil
}
