package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/store/postgres"
)

// Backend names.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	LogPath     string
	MarkerPath  string
	DatabaseURL string
	// Zone interprets legacy CSV timestamps without an offset.
	Zone *time.Location
	// ReadOnly skips schema migrations and rejects every log write.
	ReadOnly bool
}

// ErrReadOnly is returned by writes to a log opened read-only.
var ErrReadOnly = errors.New("evaluation log opened read-only")

// Backend bundles the evaluation log and the alert marker store.
type Backend struct {
	Log     evaluation.Log
	Markers alert.MarkerStore
	close   func()
}

// Close releases backend resources.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	b, err := open(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.ReadOnly {
		b.Log = readOnlyLog{Log: b.Log}
	}
	return b, nil
}

func open(ctx context.Context, opts Options) (*Backend, error) {
	switch opts.Backend {
	case BackendFile, "":
		log, err := OpenFileLog(opts.LogPath, opts.Zone)
		if err != nil {
			return nil, err
		}
		return &Backend{Log: log, Markers: NewFileMarker(opts.MarkerPath)}, nil

	case BackendMemory:
		return &Backend{Log: NewMemoryLog(), Markers: NewMemoryMarker()}, nil

	case BackendPostgres:
		if !opts.ReadOnly {
			if err := postgres.Migrate(opts.DatabaseURL); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Log:     postgres.NewLog(pool),
			Markers: postgres.NewMarker(pool),
			close:   pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// readOnlyLog serves reads from the wrapped log and refuses writes.
type readOnlyLog struct {
	evaluation.Log
}

func (readOnlyLog) Append(context.Context, evaluation.Evaluation) error {
	return ErrReadOnly
}

func (readOnlyLog) BackfillOutcome(context.Context, time.Time, evaluation.Outcome) error {
	return ErrReadOnly
}
