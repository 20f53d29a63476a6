// Package alert decides when to notify the operator. At most one notification
// goes out per calendar day, and only for call-off evaluations.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/risk"
)

// Gate enforces the once-per-day call-off notification policy.
type Gate struct {
	markers  MarkerStore
	notifier Notifier
	location *time.Location
	airport  string
	logger   *slog.Logger
}

// NewGate creates a Gate. Calendar days are evaluated in loc.
func NewGate(markers MarkerStore, notifier Notifier, loc *time.Location, airport string, logger *slog.Logger) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{
		markers:  markers,
		notifier: notifier,
		location: loc,
		airport:  airport,
		logger:   logger.With("component", "alert_gate"),
	}
}

// ShouldSend is the gate's decision rule.
func ShouldSend(band risk.Band, marker Marker, today Date) bool {
	return band == risk.BandCallOff && marker.LastSent != today
}

// MaybeNotify sends the day's alert if the band is CallOff and none has been
// sent today. It reports whether a notification was delivered.
//
// A notifier failure returns ErrNotificationFailed and leaves the marker
// untouched, so the next call-off tick the same day retries.
func (g *Gate) MaybeNotify(ctx context.Context, now time.Time, band risk.Band, ev evaluation.Evaluation) (bool, error) {
	if band != risk.BandCallOff {
		return false, nil
	}

	marker, err := g.markers.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load alert marker: %w", err)
	}

	today := DateOf(now, g.location)
	if !ShouldSend(band, marker, today) {
		g.logger.Debug("alert already sent today", "date", today)
		return false, nil
	}

	if err := g.notifier.Send(ctx, FormatMessage(g.airport, band, ev)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	if _, err := g.markers.Save(ctx, marker.Version, today); err != nil {
		// The message went out; a lost marker write can at worst cause a
		// second alert later today.
		if errors.Is(err, ErrMarkerConflict) {
			g.logger.Warn("alert marker changed while sending", "date", today)
		}
		return true, fmt.Errorf("save alert marker: %w", err)
	}

	g.logger.Info("call-off alert sent", "date", today, "score", ev.Score)
	return true, nil
}

// Marker returns the currently stored marker.
func (g *Gate) Marker(ctx context.Context) (Marker, error) {
	return g.markers.Load(ctx)
}
