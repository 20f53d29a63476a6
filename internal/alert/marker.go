package alert

import (
	"context"
	"errors"
	"time"
)

// ErrMarkerConflict is returned by Save when the stored marker version no
// longer matches the version the caller read.
var ErrMarkerConflict = errors.New("alert marker changed concurrently")

// Date is a calendar date in YYYY-MM-DD form. The zero value means "never".
type Date string

const dateLayout = "2006-01-02"

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc).Format(dateLayout))
}

// ParseDate validates s as a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", err
	}
	return Date(s), nil
}

// IsZero reports whether no date has been recorded.
func (d Date) IsZero() bool {
	return d == ""
}

// Marker records the last calendar date an alert went out.
type Marker struct {
	LastSent Date  `json:"lastSentDate,omitempty"`
	Version  int64 `json:"version"`
}

// MarkerStore persists the Marker outside the evaluation log.
type MarkerStore interface {
	// Load returns the current marker; a store that was never written returns
	// the zero Marker.
	Load(ctx context.Context) (Marker, error)
	// Save writes sent if the stored version still equals expectedVersion and
	// returns the new marker. Otherwise it returns ErrMarkerConflict.
	Save(ctx context.Context, expectedVersion int64, sent Date) (Marker, error)
}
