package advisor

import (
	"context"
	"slices"

	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/risk"
)

// Entry is a logged evaluation with its band.
type Entry struct {
	evaluation.Evaluation
	Band  risk.Band `json:"band"`
	Label string    `json:"label"`
}

func (s *Service) entry(ev evaluation.Evaluation) Entry {
	b := s.scorer.Classify(ev.Score)
	return Entry{Evaluation: ev, Band: b, Label: b.Label()}
}

// HistoryQuery filters the log. Hours are local to the service's zone and the
// range is inclusive.
type HistoryQuery struct {
	// Date restricts to one local calendar date; zero means every date.
	Date       alert.Date
	FromHour   int
	ToHour     int
	Descending bool
	// Limit caps the result; 0 means no cap.
	Limit int
}

// DefaultHistoryQuery matches every row, newest first.
func DefaultHistoryQuery() HistoryQuery {
	return HistoryQuery{FromHour: 0, ToHour: 23, Descending: true}
}

// History returns the rows matching q.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]Entry, error) {
	rows, err := s.log.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(rows))
	for _, ev := range rows {
		local := ev.Timestamp.In(s.location)
		if !q.Date.IsZero() && alert.DateOf(local, s.location) != q.Date {
			continue
		}
		if h := local.Hour(); h < q.FromHour || h > q.ToHour {
			continue
		}
		out = append(out, s.entry(ev))
	}

	if q.Descending {
		slices.Reverse(out)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Latest returns the newest evaluation, or evaluation.ErrNotFound on an empty
// log.
func (s *Service) Latest(ctx context.Context) (Entry, error) {
	rows, err := s.log.ReadAll(ctx)
	if err != nil {
		return Entry{}, err
	}
	if len(rows) == 0 {
		return Entry{}, evaluation.ErrNotFound
	}
	return s.entry(rows[len(rows)-1]), nil
}

// Summary aggregates one calendar date.
type Summary struct {
	Date         alert.Date        `json:"date"`
	Total        int               `json:"total"`
	Bands        map[risk.Band]int `json:"bands"`
	Severe       int               `json:"severe"`
	AverageScore float64           `json:"averageScore"`
	MaxScore     int               `json:"maxScore"`
	Labeled      int               `json:"labeled"`
}

// Summarize aggregates the rows of date.
func (s *Service) Summarize(ctx context.Context, date alert.Date) (Summary, error) {
	entries, err := s.History(ctx, HistoryQuery{Date: date, FromHour: 0, ToHour: 23})
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Date: date,
		Bands: map[risk.Band]int{
			risk.BandSafe:       0,
			risk.BandBorderline: 0,
			risk.BandCallOff:    0,
		},
	}
	total := 0
	for _, e := range entries {
		sum.Total++
		sum.Bands[e.Band]++
		if e.Band == risk.BandCallOff {
			sum.Severe++
		}
		if e.Outcome.Labeled() {
			sum.Labeled++
		}
		total += e.Score
		sum.MaxScore = max(sum.MaxScore, e.Score)
	}
	if sum.Total > 0 {
		sum.AverageScore = float64(total) / float64(sum.Total)
	}
	return sum, nil
}

// Today returns the current local calendar date.
func (s *Service) Today() alert.Date {
	return alert.DateOf(s.now(), s.location)
}

// Dates lists the local calendar dates that have evaluations, newest first.
func (s *Service) Dates(ctx context.Context) ([]alert.Date, error) {
	rows, err := s.log.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]alert.Date, 0)
	for i := len(rows) - 1; i >= 0; i-- {
		d := alert.DateOf(rows[i].Timestamp, s.location)
		if n := len(out); n == 0 || out[n-1] != d {
			out = append(out, d)
		}
	}
	return out, nil
}
