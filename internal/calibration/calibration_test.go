package calibration

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/telemetry"
)

var base = time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)

func row(i, score, flights int, vis float64, cond string, outcome evaluation.Outcome) evaluation.Evaluation {
	r := telemetry.Reading{}.WithFlights(flights).WithWeather(telemetry.Weather{Summary: cond, VisibilityMiles: vis, TemperatureF: 30})
	ev := evaluation.New(base.Add(time.Duration(i)*time.Minute), score, r)
	ev.Outcome = outcome
	return ev
}

// separable returns n rows where bad-weather, low-traffic rows were called off
// and the rest were not.
func separable(n int) []evaluation.Evaluation {
	rows := make([]evaluation.Evaluation, 0, n)
	for i := range n {
		if i%2 == 0 {
			cond := []string{"Fog", "Snow"}[i%4/2]
			rows = append(rows, row(i, 75+i%25, i%5, 0.25+float64(i%3)*0.25, cond, evaluation.OutcomeCalledOff))
		} else {
			cond := []string{"Clear", "Cloudy"}[i%4/2]
			rows = append(rows, row(i, i%30, 20+i%10, 5+float64(i%6), cond, evaluation.OutcomeWentIn))
		}
	}
	return rows
}

func TestTrainSeparable(t *testing.T) {
	rows := separable(40)
	// Rows the trainer must skip.
	rows = append(rows,
		row(100, 50, 5, 1, "Rain", evaluation.OutcomeUnknown),
		evaluation.Evaluation{Timestamp: base.Add(200 * time.Minute), Score: 80, Outcome: evaluation.OutcomeCalledOff},
	)

	m, err := Train(rows, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 32, m.TrainRows)
	assert.Equal(t, 8, m.TestRows)
	assert.Equal(t, SchemaVersion, m.SchemaVersion)
	assert.Equal(t, FeatureNames, m.Features)
	assert.Len(t, m.Forest.Trees, 100)
	assert.NotEmpty(t, m.ID)

	assert.Equal(t, []string{"Clear", "Cloudy", "Fog", "Snow"}, m.Encoder.Classes)
	assert.InDelta(t, 1.0, m.Report.Accuracy, 1e-9)
	assert.Equal(t, 8, m.Report.TP+m.Report.TN)

	calledOff, p, err := m.Predict(row(500, 90, 1, 0.5, "Fog", evaluation.OutcomeUnknown))
	require.NoError(t, err)
	assert.True(t, calledOff)
	assert.Greater(t, p, 0.5)

	calledOff, p, err = m.Predict(row(501, 0, 25, 10, "Clear", evaluation.OutcomeUnknown))
	require.NoError(t, err)
	assert.False(t, calledOff)
	assert.Less(t, p, 0.5)
}

func TestTrainDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Trees = 10

	a, err := Train(separable(30), opts)
	require.NoError(t, err)
	b, err := Train(separable(30), opts)
	require.NoError(t, err)

	assert.Equal(t, a.Forest, b.Forest)
	assert.Equal(t, a.Report, b.Report)
}

func TestTrainInsufficientData(t *testing.T) {
	rows := separable(9)
	for i := range 20 {
		// Unlabeled rows do not count.
		rows = append(rows, row(100+i, 10, 30, 10, "Clear", evaluation.OutcomeUnknown))
	}

	_, err := Train(rows, DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Train(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrainDegenerateLabels(t *testing.T) {
	var rows []evaluation.Evaluation
	for i := range 20 {
		rows = append(rows, row(i, i, 30, 10, "Clear", evaluation.OutcomeWentIn))
	}

	_, err := Train(rows, DefaultOptions())
	assert.ErrorIs(t, err, ErrDegenerateLabels)
}

func TestTrainRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.TestFraction = 1.5
	_, err := Train(separable(20), opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.ClassWeight = "auto"
	_, err = Train(separable(20), opts)
	assert.Error(t, err)
}

func TestTrainUnweightedAndShallow(t *testing.T) {
	opts := DefaultOptions()
	opts.ClassWeight = ClassWeightNone
	opts.MaxDepth = 1
	opts.MinSamplesLeaf = 2
	opts.Trees = 20

	m, err := Train(separable(40), opts)
	require.NoError(t, err)
	for _, tree := range m.Forest.Trees {
		assert.LessOrEqual(t, len(tree.Nodes), 3)
	}
}

func TestPredictErrors(t *testing.T) {
	m, err := Train(separable(20), DefaultOptions())
	require.NoError(t, err)

	_, _, err = m.Predict(row(0, 50, 5, 1, "Volcanic ash", evaluation.OutcomeUnknown))
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, _, err = m.Predict(evaluation.New(base, 50, telemetry.Reading{}.WithFlights(3)))
	assert.ErrorIs(t, err, ErrMissingFeature)
}

func TestModelSaveLoad(t *testing.T) {
	opts := DefaultOptions()
	opts.Trees = 5
	m, err := Train(separable(20), opts)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, m.Encoder, loaded.Encoder)
	assert.Equal(t, m.Forest, loaded.Forest)
	assert.Equal(t, m.Options, loaded.Options)
	assert.Equal(t, m.Report, loaded.Report)
	assert.True(t, m.TrainedAt.Equal(loaded.TrainedAt))

	path := filepath.Join(t.TempDir(), "models", "calloff_model.json.zst")
	require.NoError(t, m.SaveFile(path))
	fromFile, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.Forest, fromFile.Forest)
}

func TestLoadRejectsOtherSchema(t *testing.T) {
	m := &Model{SchemaVersion: SchemaVersion + 1, Forest: Forest{Trees: []Tree{{Nodes: []Node{{Leaf: true}}}}}}
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	_, err := Load(&buf)
	assert.ErrorIs(t, err, ErrSchemaVersion)

	_, err = Load(bytes.NewReader([]byte("not zstd")))
	assert.Error(t, err)
}

func TestEncoder(t *testing.T) {
	enc := FitEncoder([]string{"Snow", "Clear", "Fog", "Clear"})
	assert.Equal(t, []string{"Clear", "Fog", "Snow"}, enc.Classes)

	code, err := enc.Encode("Snow")
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	_, err = enc.Encode("snow")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSplitIndices(t *testing.T) {
	tests := []struct {
		n         int
		frac      float64
		wantTrain int
		wantTest  int
	}{
		{n: 2, frac: 0.2, wantTrain: 1, wantTest: 1},
		{n: 10, frac: 0.2, wantTrain: 8, wantTest: 2},
		{n: 11, frac: 0.2, wantTrain: 8, wantTest: 3},
		{n: 4, frac: 0.99, wantTrain: 1, wantTest: 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			train, test := splitIndices(tt.n, tt.frac, rand.New(rand.NewPCG(1, 1)))
			assert.Len(t, train, tt.wantTrain)
			assert.Len(t, test, tt.wantTest)
			assert.ElementsMatch(t, seq(tt.n), append(append([]int{}, train...), test...))
		})
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestReport(t *testing.T) {
	r := newReport(
		[]int{1, 1, 1, 0, 0, 0, 0},
		[]bool{true, true, false, false, false, true, false},
	)

	assert.Equal(t, 2, r.TP)
	assert.Equal(t, 1, r.FN)
	assert.Equal(t, 1, r.FP)
	assert.Equal(t, 3, r.TN)
	assert.InDelta(t, 5.0/7.0, r.Accuracy, 1e-9)

	assert.InDelta(t, 2.0/3.0, r.CalledOff.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, r.CalledOff.Recall, 1e-9)
	assert.Equal(t, 3, r.CalledOff.Support)
	assert.InDelta(t, 0.75, r.WentIn.Precision, 1e-9)
	assert.Equal(t, 4, r.WentIn.Support)

	out := r.String()
	assert.Contains(t, out, "=== Classification Report ===")
	assert.Contains(t, out, "=== Confusion Matrix ===")
	assert.Contains(t, out, "[[3 1]\n [1 2]]")
}

func TestClassWeights(t *testing.T) {
	w := classWeights([]int{1, 0, 0, 0}, ClassWeightBalanced)
	assert.InDelta(t, 4.0/6.0, w[0], 1e-9)
	assert.InDelta(t, 2.0, w[1], 1e-9)

	assert.Equal(t, [2]float64{1, 1}, classWeights([]int{1, 0}, ClassWeightNone))
}
