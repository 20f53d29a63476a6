package calibration

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/calloff/internal/evaluation"
)

// Train fits a model on the usable rows of the log and evaluates it on a
// held-out split. It never writes anything.
func Train(rows []evaluation.Evaluation, opts Options) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	usable := make([]evaluation.Evaluation, 0, len(rows))
	for _, ev := range rows {
		if Usable(ev) {
			usable = append(usable, ev)
		}
	}
	if len(usable) < opts.MinRows {
		return nil, fmt.Errorf("%w: %d usable rows, need %d", ErrInsufficientData, len(usable), opts.MinRows)
	}

	first := usable[0].Outcome
	if !slices.ContainsFunc(usable, func(ev evaluation.Evaluation) bool { return ev.Outcome != first }) {
		return nil, fmt.Errorf("%w: every row is %s", ErrDegenerateLabels, first)
	}

	conditions := make([]string, len(usable))
	for i, ev := range usable {
		conditions[i] = *ev.Condition
	}
	enc := FitEncoder(conditions)

	ds, err := buildDataset(usable, enc)
	if err != nil {
		return nil, err
	}

	seed := uint64(opts.Seed)
	rng := rand.New(rand.NewPCG(seed, seed))

	trainIdx, testIdx := splitIndices(len(ds.y), opts.TestFraction, rng)
	train, test := ds.subset(trainIdx), ds.subset(testIdx)

	forest := fitForest(train, forestParams{
		trees:        opts.Trees,
		maxDepth:     opts.MaxDepth,
		minLeaf:      opts.MinSamplesLeaf,
		classWeights: classWeights(train.y, opts.ClassWeight),
	}, rng)

	pred := make([]bool, len(test.y))
	for i, x := range test.x {
		pred[i] = forest.Predict(x)
	}

	return &Model{
		ID:            uuid.NewString(),
		SchemaVersion: SchemaVersion,
		TrainedAt:     time.Now().UTC(),
		Features:      slices.Clone(FeatureNames),
		Encoder:       enc,
		Forest:        forest,
		Options:       opts,
		TrainRows:     len(train.y),
		TestRows:      len(test.y),
		Report:        newReport(test.y, pred),
	}, nil
}
