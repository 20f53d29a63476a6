package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/zstd"

	"github.com/i474232898/calloff/internal/evaluation"
)

// SchemaVersion is bumped whenever the artifact layout changes.
const SchemaVersion = 1

// ErrSchemaVersion is returned by Load for artifacts of another version.
var ErrSchemaVersion = errors.New("unsupported model schema version")

// Class weighting modes.
const (
	ClassWeightBalanced = "balanced"
	ClassWeightNone     = "none"
)

// Options control a training run.
type Options struct {
	MinRows        int     `json:"minRows" validate:"gte=2"`
	TestFraction   float64 `json:"testFraction" validate:"gt=0,lt=1"`
	Seed           int64   `json:"seed"`
	Trees          int     `json:"trees" validate:"gte=1"`
	MaxDepth       int     `json:"maxDepth" validate:"gte=0"`
	MinSamplesLeaf int     `json:"minSamplesLeaf" validate:"gte=1"`
	ClassWeight    string  `json:"classWeight" validate:"oneof=balanced none"`
}

// DefaultOptions returns the stock training options.
func DefaultOptions() Options {
	return Options{
		MinRows:        10,
		TestFraction:   0.2,
		Seed:           42,
		Trees:          100,
		MaxDepth:       0,
		MinSamplesLeaf: 1,
		ClassWeight:    ClassWeightBalanced,
	}
}

var validate = validator.New()

// Validate checks option ranges.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid training options: %w", err)
	}
	return nil
}

// Model is the trained artifact. The encoder and the forest always travel
// together.
type Model struct {
	ID            string    `json:"id"`
	SchemaVersion int       `json:"schemaVersion"`
	TrainedAt     time.Time `json:"trainedAt"`
	Features      []string  `json:"features"`
	Encoder       Encoder   `json:"encoder"`
	Forest        Forest    `json:"forest"`
	Options       Options   `json:"options"`
	TrainRows     int       `json:"trainRows"`
	TestRows      int       `json:"testRows"`
	Report        Report    `json:"report"`
}

// Predict returns whether the model expects a call-off for ev and the
// positive-class probability.
func (m *Model) Predict(ev evaluation.Evaluation) (bool, float64, error) {
	x, err := vector(ev, m.Encoder)
	if err != nil {
		return false, 0, err
	}
	p := m.Forest.Prob(x)
	return p > 0.5, p, nil
}

// Save writes m as zstd-compressed JSON.
func (m *Model) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(m); err != nil {
		zw.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush zstd writer: %w", err)
	}
	return nil
}

// Load reads an artifact written by Save.
func Load(r io.Reader) (*Model, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	var m Model
	if err := json.NewDecoder(zr).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSchemaVersion, m.SchemaVersion)
	}
	if len(m.Forest.Trees) == 0 {
		return nil, errors.New("model has no trees")
	}
	return &m, nil
}

// SaveFile writes the artifact to path through a temporary file in the same
// directory, so readers never observe a partial model.
func (m *Model) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := m.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename model: %w", err)
	}
	return nil
}

// LoadFile reads the artifact at path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return Load(f)
}
