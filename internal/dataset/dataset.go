// Package dataset implements the offline data processing stage: merging the
// raw disease/symptom table with the severity vocabulary into encoded
// feature rows, synthetic augmentation, and stratified train/test splits.
// It feeds the trainer only and is never on the online request path.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/healthstack/diagnosis-engine/internal/encoder"
	"github.com/healthstack/diagnosis-engine/internal/vocab"
)

// ErrInsufficientData reports a data-quality problem detected before any
// model fitting starts: an empty set or a label with fewer than two examples.
var ErrInsufficientData = errors.New("dataset: insufficient training data")

// Table is an encoded dataset: one weighted-presence feature row per
// example, restricted strictly to the vocabulary.
type Table struct {
	Features [][]float64
	Labels   []string
}

// Len returns the number of examples.
func (t *Table) Len() int { return len(t.Labels) }

// Append adds the rows of other to t.
func (t *Table) Append(other *Table) {
	t.Features = append(t.Features, other.Features...)
	t.Labels = append(t.Labels, other.Labels...)
}

// Processor merges raw CSV inputs into encoded tables.
type Processor struct {
	dataDir string
	logger  *slog.Logger
}

// NewProcessor creates a Processor rooted at dataDir.
func NewProcessor(dataDir string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{dataDir: dataDir, logger: logger}
}

// LoadVocabulary reads the severity table that defines the symptom
// vocabulary and feature order.
func (p *Processor) LoadVocabulary() (*vocab.Vocabulary, error) {
	return vocab.Load(filepath.Join(p.dataDir, "Symptom-severity.csv"))
}

// LoadMerged reads dataset.csv (Disease plus Symptom_N columns) and encodes
// every row over the vocabulary. Symptoms absent from the vocabulary are
// dropped and counted.
func (p *Processor) LoadMerged(v *vocab.Vocabulary) (*Table, error) {
	f, err := os.Open(filepath.Join(p.dataDir, "dataset.csv"))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	table, dropped, err := parseDataset(f, v)
	if err != nil {
		return nil, err
	}

	p.logger.Info("merged dataset loaded",
		slog.Int("records", table.Len()),
		slog.Int("symptoms", v.Size()),
		slog.Int("dropped_oov_mentions", dropped),
	)
	return table, nil
}

func parseDataset(r io.Reader, v *vocab.Vocabulary) (*Table, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read dataset csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("%w: dataset has no rows", ErrInsufficientData)
	}

	header := rows[0]
	diseaseCol := -1
	symptomCols := make([]int, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case strings.EqualFold(name, "Disease"):
			diseaseCol = i
		case strings.HasPrefix(name, "Symptom"):
			symptomCols = append(symptomCols, i)
		}
	}
	if diseaseCol < 0 || len(symptomCols) == 0 {
		return nil, 0, fmt.Errorf("dataset csv missing Disease or Symptom columns")
	}

	enc, err := encoder.New(v, encoder.EncodingSeverityWeighted)
	if err != nil {
		return nil, 0, err
	}

	table := &Table{}
	dropped := 0
	for n, row := range rows[1:] {
		if len(row) <= diseaseCol {
			continue
		}
		disease := strings.TrimSpace(row[diseaseCol])
		if disease == "" {
			continue
		}

		tokens := make([]string, 0, len(symptomCols))
		for _, col := range symptomCols {
			if col >= len(row) {
				continue
			}
			token := vocab.Normalize(row[col])
			if token == "" {
				continue
			}
			if !v.Contains(token) {
				dropped++
				continue
			}
			tokens = append(tokens, token)
		}

		vector, err := enc.Encode(tokens)
		if err != nil {
			return nil, 0, fmt.Errorf("dataset row %d: %w", n+2, err)
		}
		table.Features = append(table.Features, vector)
		table.Labels = append(table.Labels, disease)
	}

	if table.Len() == 0 {
		return nil, 0, fmt.Errorf("%w: dataset has no usable rows", ErrInsufficientData)
	}
	return table, dropped, nil
}

// SaveMerged writes the encoded table back to the data directory as
// merged.csv for inspection and reuse.
func (p *Processor) SaveMerged(table *Table, v *vocab.Vocabulary, filename string) error {
	if filename == "" {
		filename = "merged.csv"
	}
	path := filepath.Join(p.dataDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"Disease"}, v.Tokens()...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(header))
	for i, vector := range table.Features {
		record[0] = table.Labels[i]
		for j, val := range vector {
			record[j+1] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	p.logger.Info("saved merged dataset", slog.String("path", path), slog.Int("records", table.Len()))
	return nil
}

// CheckQuality verifies that the table can support a stratified split and
// cross-validation: non-empty, and every label with at least two examples.
func CheckQuality(table *Table) error {
	if table == nil || table.Len() == 0 {
		return fmt.Errorf("%w: empty training set", ErrInsufficientData)
	}

	counts := make(map[string]int)
	for _, label := range table.Labels {
		counts[label]++
	}
	if len(counts) < 2 {
		return fmt.Errorf("%w: need at least 2 disease labels, have %d", ErrInsufficientData, len(counts))
	}

	var sparse []string
	for label, count := range counts {
		if count < 2 {
			sparse = append(sparse, label)
		}
	}
	if len(sparse) > 0 {
		sort.Strings(sparse)
		return fmt.Errorf("%w: labels with fewer than 2 examples: %s",
			ErrInsufficientData, strings.Join(sparse, ", "))
	}
	return nil
}
