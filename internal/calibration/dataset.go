// Package calibration fits a classifier that predicts the operator's call-off
// decision from logged evaluations, so the heuristic score can be checked
// against what actually happened.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/i474232898/calloff/internal/evaluation"
)

var (
	// ErrInsufficientData is returned when too few labeled rows are usable.
	ErrInsufficientData = errors.New("insufficient labeled data")

	// ErrDegenerateLabels is returned when every usable row has the same outcome.
	ErrDegenerateLabels = errors.New("all labeled rows share one outcome")

	// ErrUnknownCategory is returned when a condition was not seen in training.
	ErrUnknownCategory = errors.New("unknown condition category")

	// ErrMissingFeature is returned when a row lacks a model input.
	ErrMissingFeature = errors.New("missing model feature")
)

// Feature columns, in model input order.
const (
	featScore = iota
	featFlights
	featVisibility
	featCondition
	numFeatures
)

// FeatureNames names the model inputs in order.
var FeatureNames = []string{"score", "flights", "visibility_mi", "condition_code"}

// Encoder maps condition summaries to integer codes. Codes are the positions
// of the sorted distinct summaries seen in training.
type Encoder struct {
	Classes []string `json:"classes"`
}

// FitEncoder builds an Encoder over values.
func FitEncoder(values []string) Encoder {
	classes := slices.Clone(values)
	sort.Strings(classes)
	return Encoder{Classes: slices.Compact(classes)}
}

// Encode returns the code of v.
func (e Encoder) Encode(v string) (int, error) {
	i, ok := slices.BinarySearch(e.Classes, v)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, v)
	}
	return i, nil
}

// Usable reports whether ev can be used for training: labeled and with every
// model input present.
func Usable(ev evaluation.Evaluation) bool {
	return ev.Outcome.Labeled() &&
		ev.FlightCount != nil &&
		ev.VisibilityMiles != nil &&
		ev.Condition != nil
}

func vector(ev evaluation.Evaluation, enc Encoder) ([]float64, error) {
	switch {
	case ev.FlightCount == nil:
		return nil, fmt.Errorf("%w: flights", ErrMissingFeature)
	case ev.VisibilityMiles == nil:
		return nil, fmt.Errorf("%w: visibility_mi", ErrMissingFeature)
	case ev.Condition == nil:
		return nil, fmt.Errorf("%w: condition", ErrMissingFeature)
	}

	code, err := enc.Encode(*ev.Condition)
	if err != nil {
		return nil, err
	}

	x := make([]float64, numFeatures)
	x[featScore] = float64(ev.Score)
	x[featFlights] = float64(*ev.FlightCount)
	x[featVisibility] = *ev.VisibilityMiles
	x[featCondition] = float64(code)
	return x, nil
}

func label(o evaluation.Outcome) int {
	if o == evaluation.OutcomeCalledOff {
		return 1
	}
	return 0
}

// dataset is the encoded training table.
type dataset struct {
	x [][]float64
	y []int
}

func buildDataset(rows []evaluation.Evaluation, enc Encoder) (dataset, error) {
	ds := dataset{x: make([][]float64, 0, len(rows)), y: make([]int, 0, len(rows))}
	for _, ev := range rows {
		x, err := vector(ev, enc)
		if err != nil {
			return dataset{}, fmt.Errorf("row %s: %w", ev.Timestamp.Format("2006-01-02T15:04Z07:00"), err)
		}
		ds.x = append(ds.x, x)
		ds.y = append(ds.y, label(ev.Outcome))
	}
	return ds, nil
}

func (d dataset) subset(idx []int) dataset {
	out := dataset{x: make([][]float64, len(idx)), y: make([]int, len(idx))}
	for i, j := range idx {
		out.x[i] = d.x[j]
		out.y[i] = d.y[j]
	}
	return out
}

// splitIndices shuffles 0..n-1 and holds out ceil(frac*n) rows for testing,
// keeping at least one row on each side.
func splitIndices(n int, frac float64, rng *rand.Rand) (train, test []int) {
	perm := rng.Perm(n)
	nTest := int(math.Ceil(frac * float64(n)))
	nTest = max(1, min(nTest, n-1))
	return perm[nTest:], perm[:nTest]
}
