package store

import (
	"slices"
	"time"

	"github.com/i474232898/calloff/internal/evaluation"
)

func compareRow(ev evaluation.Evaluation, ts time.Time) int {
	return ev.Timestamp.Compare(ts)
}

// search finds the row keyed by ts in a slice sorted by timestamp.
func search(rows []evaluation.Evaluation, ts time.Time) (int, bool) {
	return slices.BinarySearchFunc(rows, evaluation.Normalize(ts), compareRow)
}

// insertSorted returns a new slice with ev inserted in order, or
// ErrDuplicateTimestamp. The input slice is never modified.
func insertSorted(rows []evaluation.Evaluation, ev evaluation.Evaluation) ([]evaluation.Evaluation, error) {
	i, found := search(rows, ev.Timestamp)
	if found {
		return nil, evaluation.ErrDuplicateTimestamp
	}

	out := make([]evaluation.Evaluation, 0, len(rows)+1)
	out = append(out, rows[:i]...)
	out = append(out, ev)
	out = append(out, rows[i:]...)
	return out, nil
}

func cloneAll(rows []evaluation.Evaluation) []evaluation.Evaluation {
	out := make([]evaluation.Evaluation, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
