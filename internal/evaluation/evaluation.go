// Package evaluation defines the evaluation history row and the contract every
// Evaluation Log backend satisfies.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/calloff/internal/telemetry"
)

var (
	// ErrDuplicateTimestamp is returned by Append when a row with the same
	// timestamp exists. Callers treat it as success.
	ErrDuplicateTimestamp = errors.New("evaluation already recorded for timestamp")

	// ErrNotFound is returned when no row matches a timestamp.
	ErrNotFound = errors.New("evaluation not found")

	// ErrInvalid is returned for rows that violate field constraints.
	ErrInvalid = errors.New("invalid evaluation")
)

// Evaluation is one row of the history.
type Evaluation struct {
	// Timestamp is UTC with minute resolution and uniquely identifies the row.
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`

	FlightCount     *int     `json:"flightCount"`
	Condition       *string  `json:"condition"`
	VisibilityMiles *float64 `json:"visibilityMiles"`
	TemperatureF    *float64 `json:"temperatureF"`

	Outcome Outcome `json:"outcome"`
}

// Log is an append-only, timestamp-deduplicated evaluation history.
type Log interface {
	// Append inserts ev, or returns ErrDuplicateTimestamp.
	Append(ctx context.Context, ev Evaluation) error
	// BackfillOutcome sets the outcome of the row at ts, or returns ErrNotFound.
	BackfillOutcome(ctx context.Context, ts time.Time, outcome Outcome) error
	// ReadAll returns every row in ascending timestamp order.
	ReadAll(ctx context.Context) ([]Evaluation, error)
}

// Normalize converts ts to the log's key form: UTC, truncated to the minute.
func Normalize(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Minute)
}

// lineBreaks folds CR and CRLF to LF; CSV readers drop the CR of a CRLF.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// New builds the row for a tick from its reading and score.
func New(ts time.Time, score int, r telemetry.Reading) Evaluation {
	ev := Evaluation{
		Timestamp: Normalize(ts),
		Score:     score,
		Outcome:   OutcomeUnknown,
	}
	if r.FlightCount != nil {
		n := *r.FlightCount
		ev.FlightCount = &n
	}
	if r.Weather != nil {
		vis := r.Weather.VisibilityMiles
		temp := r.Weather.TemperatureF
		// An empty summary is stored as a missing condition.
		if cond := lineBreaks.Replace(r.Weather.Summary); cond != "" {
			ev.Condition = &cond
		}
		ev.VisibilityMiles = &vis
		ev.TemperatureF = &temp
	}
	return ev
}

// Validate checks field constraints.
func (e Evaluation) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalid)
	}
	if !e.Timestamp.Equal(Normalize(e.Timestamp)) {
		return fmt.Errorf("%w: timestamp %s is not minute-aligned", ErrInvalid, e.Timestamp)
	}
	if e.Score < 0 || e.Score > 100 {
		return fmt.Errorf("%w: score %d out of range", ErrInvalid, e.Score)
	}
	if e.FlightCount != nil && *e.FlightCount < 0 {
		return fmt.Errorf("%w: negative flight count", ErrInvalid)
	}
	if e.Condition != nil && strings.ContainsRune(*e.Condition, '\r') {
		return fmt.Errorf("%w: carriage return in condition", ErrInvalid)
	}
	if !e.Outcome.Valid() {
		return fmt.Errorf("%w: outcome %q", ErrInvalid, e.Outcome)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored rows.
func (e Evaluation) Clone() Evaluation {
	out := e
	if e.FlightCount != nil {
		v := *e.FlightCount
		out.FlightCount = &v
	}
	if e.Condition != nil {
		v := *e.Condition
		out.Condition = &v
	}
	if e.VisibilityMiles != nil {
		v := *e.VisibilityMiles
		out.VisibilityMiles = &v
	}
	if e.TemperatureF != nil {
		v := *e.TemperatureF
		out.TemperatureF = &v
	}
	return out
}
