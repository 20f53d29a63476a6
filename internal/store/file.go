package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
)

// Compile-time assertions.
var (
	_ evaluation.Log    = (*FileLog)(nil)
	_ alert.MarkerStore = (*FileMarker)(nil)
)

// FileLog is the CSV-backed evaluation log. Every operation reads the file
// afresh, so rows labeled by hand while the daemon runs are kept. Writes
// rewrite the file atomically; a crash leaves either the old or the new
// content on disk. Only one process may write a given file.
type FileLog struct {
	mu   sync.RWMutex
	path string
	zone *time.Location
}

// OpenFileLog checks that the log at path is readable. A missing file is an
// empty log; it is created on the first append. zone interprets legacy
// timestamps that carry no offset.
func OpenFileLog(path string, zone *time.Location) (*FileLog, error) {
	if zone == nil {
		zone = time.UTC
	}
	l := &FileLog{path: path, zone: zone}

	if _, err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLog) load() ([]evaluation.Evaluation, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open evaluation log: %w", err)
	}
	defer f.Close()

	rows, err := readCSV(f, l.zone)
	if err != nil {
		return nil, fmt.Errorf("read evaluation log %s: %w", l.path, err)
	}
	return rows, nil
}

// Path returns the file backing the log.
func (l *FileLog) Path() string {
	return l.path
}

func (l *FileLog) Append(_ context.Context, ev evaluation.Evaluation) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	ev = ev.Clone()
	ev.Timestamp = evaluation.Normalize(ev.Timestamp)

	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.load()
	if err != nil {
		return err
	}
	rows, err := insertSorted(current, ev)
	if err != nil {
		return err
	}
	return l.persist(rows)
}

func (l *FileLog) BackfillOutcome(_ context.Context, ts time.Time, outcome evaluation.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: outcome %q", evaluation.ErrInvalid, outcome)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.load()
	if err != nil {
		return err
	}
	i, ok := search(rows, ts)
	if !ok {
		return evaluation.ErrNotFound
	}
	rows[i].Outcome = outcome

	return l.persist(rows)
}

func (l *FileLog) ReadAll(_ context.Context) ([]evaluation.Evaluation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.load()
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []evaluation.Evaluation{}
	}
	return rows, nil
}

func (l *FileLog) persist(rows []evaluation.Evaluation) error {
	err := writeFileAtomic(l.path, func(w io.Writer) error {
		return writeCSV(w, rows)
	})
	if err != nil {
		return fmt.Errorf("persist evaluation log: %w", err)
	}
	return nil
}

// FileMarker stores the alert marker as a small JSON document.
type FileMarker struct {
	mu   sync.Mutex
	path string
}

func NewFileMarker(path string) *FileMarker {
	return &FileMarker{path: path}
}

func (m *FileMarker) Load(_ context.Context) (alert.Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read()
}

func (m *FileMarker) Save(_ context.Context, expectedVersion int64, sent alert.Date) (alert.Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.read()
	if err != nil {
		return alert.Marker{}, err
	}
	if current.Version != expectedVersion {
		return current, alert.ErrMarkerConflict
	}

	next := alert.Marker{LastSent: sent, Version: expectedVersion + 1}
	err = writeFileAtomic(m.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(next)
	})
	if err != nil {
		return current, fmt.Errorf("persist alert marker: %w", err)
	}
	return next, nil
}

func (m *FileMarker) read() (alert.Marker, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return alert.Marker{}, nil
	}
	if err != nil {
		return alert.Marker{}, fmt.Errorf("read alert marker: %w", err)
	}

	var marker alert.Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		// Older deployments kept only the bare date in the file.
		if d, perr := alert.ParseDate(strings.TrimSpace(string(data))); perr == nil {
			return alert.Marker{LastSent: d}, nil
		}
		return alert.Marker{}, fmt.Errorf("decode alert marker %s: %w", m.path, err)
	}
	return marker, nil
}
