package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
)

// Compile-time assertions.
var (
	_ evaluation.Log    = (*MemoryLog)(nil)
	_ alert.MarkerStore = (*MemoryMarker)(nil)
)

// MemoryLog is a concurrency-safe in-memory evaluation log. Rows are never
// evicted, but nothing survives a restart; it backs tests and dry runs.
type MemoryLog struct {
	mu   sync.RWMutex
	rows []evaluation.Evaluation
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append inserts ev in timestamp order.
func (s *MemoryLog) Append(_ context.Context, ev evaluation.Evaluation) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	ev = ev.Clone()
	ev.Timestamp = evaluation.Normalize(ev.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := insertSorted(s.rows, ev)
	if err != nil {
		return err
	}
	s.rows = rows
	return nil
}

// BackfillOutcome sets the outcome of the row at ts.
func (s *MemoryLog) BackfillOutcome(_ context.Context, ts time.Time, outcome evaluation.Outcome) error {
	if !outcome.Valid() {
		return evaluation.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := search(s.rows, ts)
	if !ok {
		return evaluation.ErrNotFound
	}
	s.rows[i].Outcome = outcome
	return nil
}

// ReadAll returns a copy of every row, oldest first.
func (s *MemoryLog) ReadAll(_ context.Context) ([]evaluation.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAll(s.rows), nil
}

// MemoryMarker is an in-memory alert.MarkerStore.
type MemoryMarker struct {
	mu     sync.Mutex
	marker alert.Marker
}

func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{}
}

func (m *MemoryMarker) Load(_ context.Context) (alert.Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marker, nil
}

func (m *MemoryMarker) Save(_ context.Context, expectedVersion int64, sent alert.Date) (alert.Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.marker.Version != expectedVersion {
		return m.marker, alert.ErrMarkerConflict
	}
	m.marker = alert.Marker{LastSent: sent, Version: expectedVersion + 1}
	return m.marker, nil
}
