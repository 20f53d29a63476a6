// Package advisor runs the per-tick pipeline (collect, score, log, alert) and
// answers history queries over the evaluation log.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/calibration"
	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/risk"
	"github.com/i474232898/calloff/internal/telemetry"
)

// ErrNoModel is returned by Predict when no calibration model is loaded.
var ErrNoModel = errors.New("no calibration model loaded")

// Collector gathers one telemetry reading. It must not fail.
type Collector interface {
	Collect(ctx context.Context) telemetry.Reading
}

// Service ties the pipeline components together.
type Service struct {
	// tickMu serializes ticks so dedup and the alert marker read/write never
	// interleave.
	tickMu sync.Mutex

	collector Collector
	scorer    *risk.Scorer
	log       evaluation.Log
	gate      *alert.Gate
	location  *time.Location
	logger    *slog.Logger
	now       func() time.Time

	modelMu sync.RWMutex
	model   *calibration.Model
}

// NewService creates a Service. Calendar dates and hour filters use loc.
func NewService(collector Collector, scorer *risk.Scorer, log evaluation.Log, gate *alert.Gate, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		collector: collector,
		scorer:    scorer,
		log:       log,
		gate:      gate,
		location:  loc,
		logger:    logger.With("component", "advisor"),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetModel installs a calibration model for predictions. nil unloads it.
func (s *Service) SetModel(m *calibration.Model) {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	s.model = m
}

// Location returns the zone used for calendar dates.
func (s *Service) Location() *time.Location {
	return s.location
}

// TickResult describes one pipeline run.
type TickResult struct {
	ID         string                `json:"id"`
	Evaluation evaluation.Evaluation `json:"evaluation"`
	Band       risk.Band             `json:"band"`
	Factors    []risk.Factor         `json:"factors"`
	// Duplicate is set when a row for this minute already existed.
	Duplicate bool `json:"duplicate"`
	Alerted   bool `json:"alerted"`
	// AlertError is the non-fatal gate failure, if any.
	AlertError error `json:"-"`
}

// RunTick performs one fetch-score-log-alert cycle. Only a failure to persist
// the evaluation is returned as an error; telemetry and notification problems
// are logged and reflected in the result.
func (s *Service) RunTick(ctx context.Context) (TickResult, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := s.now()
	res := TickResult{ID: uuid.NewString()}
	logger := s.logger.With("tick_id", res.ID)

	reading := s.collector.Collect(ctx)
	res.Factors = s.scorer.Factors(reading)
	score := s.scorer.Score(reading)
	res.Band = s.scorer.Classify(score)
	res.Evaluation = evaluation.New(now, score, reading)

	err := s.log.Append(ctx, res.Evaluation)
	switch {
	case errors.Is(err, evaluation.ErrDuplicateTimestamp):
		res.Duplicate = true
		logger.Info("evaluation already recorded", "timestamp", res.Evaluation.Timestamp)
	case err != nil:
		logger.Error("failed to persist evaluation", "timestamp", res.Evaluation.Timestamp, "error", err)
		return res, fmt.Errorf("persist evaluation: %w", err)
	}

	logger.Info("tick evaluated",
		"timestamp", res.Evaluation.Timestamp,
		"score", score,
		"band", res.Band,
		"flights_present", reading.FlightCount != nil,
		"weather_present", reading.Weather != nil,
	)

	res.Alerted, res.AlertError = s.gate.MaybeNotify(ctx, now, res.Band, res.Evaluation)
	if res.AlertError != nil {
		logger.Error("alert not completed", "error", res.AlertError)
	}

	return res, nil
}

// Prediction is the calibration model's view of one evaluation.
type Prediction struct {
	ModelID     string  `json:"modelId"`
	CalledOff   bool    `json:"calledOff"`
	Probability float64 `json:"probability"`
}

// Predict runs the loaded model against ev.
func (s *Service) Predict(ev evaluation.Evaluation) (Prediction, error) {
	s.modelMu.RLock()
	m := s.model
	s.modelMu.RUnlock()

	if m == nil {
		return Prediction{}, ErrNoModel
	}
	calledOff, p, err := m.Predict(ev)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{ModelID: m.ID, CalledOff: calledOff, Probability: p}, nil
}

// BackfillOutcome records the operator's actual decision for the row at ts.
func (s *Service) BackfillOutcome(ctx context.Context, ts time.Time, outcome evaluation.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: outcome %q", evaluation.ErrInvalid, outcome)
	}
	if err := s.log.BackfillOutcome(ctx, ts, outcome); err != nil {
		return err
	}
	s.logger.Info("outcome recorded", "timestamp", evaluation.Normalize(ts), "outcome", outcome)
	return nil
}
