package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/calloff/internal/evaluation"
)

// Columns of the persisted log, in file order.
var csvHeader = []string{"timestamp", "score", "flights", "condition", "visibility_mi", "temp", "called_off"}

// Rows written before outcomes were tracked stop after "temp".
const legacyColumns = 6

// Timestamp layouts accepted on read. Naive layouts are interpreted in the
// log's legacy zone.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func encodeRow(ev evaluation.Evaluation) []string {
	row := make([]string, len(csvHeader))
	row[0] = ev.Timestamp.UTC().Format(time.RFC3339)
	row[1] = strconv.Itoa(ev.Score)
	if ev.FlightCount != nil {
		row[2] = strconv.Itoa(*ev.FlightCount)
	}
	if ev.Condition != nil {
		row[3] = *ev.Condition
	}
	if ev.VisibilityMiles != nil {
		row[4] = formatFloat(*ev.VisibilityMiles)
	}
	if ev.TemperatureF != nil {
		row[5] = formatFloat(*ev.TemperatureF)
	}
	row[6] = ev.Outcome.CSV()
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func decodeRow(rec []string, zone *time.Location) (evaluation.Evaluation, error) {
	var ev evaluation.Evaluation
	if len(rec) < legacyColumns {
		return ev, fmt.Errorf("expected at least %d columns, got %d", legacyColumns, len(rec))
	}

	ts, err := parseTimestamp(rec[0], zone)
	if err != nil {
		return ev, err
	}
	ev.Timestamp = evaluation.Normalize(ts)

	if ev.Score, err = strconv.Atoi(strings.TrimSpace(rec[1])); err != nil {
		return ev, fmt.Errorf("score: %w", err)
	}

	if s := strings.TrimSpace(rec[2]); s != "" {
		// pandas writes integer columns with NaNs as floats ("12.0").
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ev, fmt.Errorf("flights: %w", err)
		}
		n := int(f)
		ev.FlightCount = &n
	}
	if s := rec[3]; s != "" {
		ev.Condition = &s
	}
	if ev.VisibilityMiles, err = parseOptionalFloat(rec[4]); err != nil {
		return ev, fmt.Errorf("visibility_mi: %w", err)
	}
	if ev.TemperatureF, err = parseOptionalFloat(rec[5]); err != nil {
		return ev, fmt.Errorf("temp: %w", err)
	}

	ev.Outcome = evaluation.OutcomeUnknown
	if len(rec) > legacyColumns {
		if ev.Outcome, err = evaluation.ParseOutcome(rec[6]); err != nil {
			return ev, err
		}
	}
	return ev, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseTimestamp(s string, zone *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, zone); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// readCSV parses a log file. The header row is optional; rows with a duplicate
// timestamp after the first are dropped.
func readCSV(r io.Reader, zone *time.Location) ([]evaluation.Evaluation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []evaluation.Evaluation
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), csvHeader[0]) {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		ev, err := decodeRow(rec, zone)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, ev)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	out := rows[:0]
	for _, ev := range rows {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(ev.Timestamp) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func writeCSV(w io.Writer, rows []evaluation.Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, ev := range rows {
		if err := cw.Write(encodeRow(ev)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
