package calibration

import (
	"fmt"
	"strings"
)

// ClassMetrics are the held-out metrics for one class.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes a model on the held-out split. The positive class is
// "called off".
type Report struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`

	WentIn    ClassMetrics `json:"wentIn"`
	CalledOff ClassMetrics `json:"calledOff"`
	Accuracy  float64      `json:"accuracy"`
}

func newReport(truth []int, pred []bool) Report {
	var r Report
	for i, y := range truth {
		switch {
		case y == 1 && pred[i]:
			r.TP++
		case y == 1:
			r.FN++
		case pred[i]:
			r.FP++
		default:
			r.TN++
		}
	}

	r.CalledOff = classMetrics(r.TP, r.FP, r.FN)
	r.WentIn = classMetrics(r.TN, r.FN, r.FP)
	if n := len(truth); n > 0 {
		r.Accuracy = float64(r.TP+r.TN) / float64(n)
	}
	return r
}

func classMetrics(tp, fp, fn int) ClassMetrics {
	m := ClassMetrics{
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		Support:   tp + fn,
	}
	if s := m.Precision + m.Recall; s > 0 {
		m.F1 = 2 * m.Precision * m.Recall / s
	}
	return m
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// String renders the classification report and confusion matrix.
func (r Report) String() string {
	var b strings.Builder

	b.WriteString("=== Classification Report ===\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, row := range []struct {
		name string
		m    ClassMetrics
	}{
		{"went_in", r.WentIn},
		{"called_off", r.CalledOff},
	} {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", row.name, row.m.Precision, row.m.Recall, row.m.F1, row.m.Support)
	}
	fmt.Fprintf(&b, "\n%12s %10s %10s %10.2f %10d\n\n", "accuracy", "", "", r.Accuracy, r.TP+r.FP+r.TN+r.FN)

	b.WriteString("=== Confusion Matrix ===\n")
	fmt.Fprintf(&b, "[[%d %d]\n [%d %d]]\n", r.TN, r.FP, r.FN, r.TP)
	return b.String()
}
