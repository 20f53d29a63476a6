package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/calloff/internal/advisor"
	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/risk"
	"github.com/i474232898/calloff/internal/store"
	"github.com/i474232898/calloff/internal/telemetry"
)

type fixedCollector struct {
	reading telemetry.Reading
}

func (f fixedCollector) Collect(context.Context) telemetry.Reading {
	return f.reading
}

var now = time.Date(2026, 2, 3, 14, 15, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*fiber.App, evaluation.Log) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := store.NewMemoryLog()
	gate := alert.NewGate(store.NewMemoryMarker(), alert.NewLogNotifier(logger), time.UTC, "ORD", logger)
	reading := telemetry.Reading{}.WithFlights(3).WithWeather(telemetry.Weather{Summary: "Heavy snow", TemperatureF: 20, VisibilityMiles: 0.5})

	svc := advisor.NewService(fixedCollector{reading: reading}, risk.NewScorer(risk.DefaultConfig()), log, gate, time.UTC, logger)
	svc.SetClock(func() time.Time { return now })

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, svc)
	return app, log
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	code, body := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestTickThenLatest(t *testing.T) {
	app, _ := newTestApp(t)

	code, _ := do(t, app, http.MethodGet, "/api/v1/evaluations/latest", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, app, http.MethodPost, "/api/v1/ticks", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(risk.BandCallOff), body["band"])
	assert.Equal(t, true, body["alerted"])
	assert.Equal(t, false, body["duplicate"])

	code, body = do(t, app, http.MethodPost, "/api/v1/ticks", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, false, body["alerted"])

	code, body = do(t, app, http.MethodGet, "/api/v1/evaluations/latest", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 90, body["score"])
	assert.Equal(t, "Call off", body["label"])
	assert.Equal(t, "Heavy snow", body["condition"])
	assert.NotContains(t, body, "prediction")
}

func TestHistoryValidation(t *testing.T) {
	app, _ := newTestApp(t)

	for _, target := range []string{
		"/api/v1/evaluations?date=03-02-2026",
		"/api/v1/evaluations?from_hour=25",
		"/api/v1/evaluations?from_hour=10&to_hour=9",
		"/api/v1/evaluations?order=sideways",
		"/api/v1/evaluations?limit=-1",
	} {
		code, body := do(t, app, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestHistoryAndSummary(t *testing.T) {
	app, log := newTestApp(t)
	ctx := context.Background()
	for i, score := range []int{10, 50, 90} {
		ts := time.Date(2026, 2, 3, 8+i, 0, 0, 0, time.UTC)
		require.NoError(t, log.Append(ctx, evaluation.New(ts, score, telemetry.Reading{})))
	}

	code, body := do(t, app, http.MethodGet, "/api/v1/evaluations?date=2026-02-03&from_hour=9&order=asc", "")
	require.Equal(t, http.StatusOK, code)
	rows := body["evaluations"].([]any)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 50, rows[0].(map[string]any)["score"])
	assert.Equal(t, string(risk.BandBorderline), rows[0].(map[string]any)["band"])

	code, body = do(t, app, http.MethodGet, "/api/v1/evaluations/summary", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2026-02-03", body["date"])
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["severe"])
	assert.EqualValues(t, 50, body["averageScore"])

	code, _ = do(t, app, http.MethodGet, "/api/v1/evaluations/summary?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, app, http.MethodGet, "/api/v1/dates", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"2026-02-03"}, body["dates"])
}

func TestBackfillOutcome(t *testing.T) {
	app, log := newTestApp(t)
	ts := time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append(context.Background(), evaluation.New(ts, 40, telemetry.Reading{})))

	code, body := do(t, app, http.MethodPut, "/api/v1/evaluations/2026-02-03T08:00:00Z/outcome", `{"outcome":"Yes"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(evaluation.OutcomeCalledOff), body["outcome"])

	rows, err := log.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, evaluation.OutcomeCalledOff, rows[0].Outcome)

	code, _ = do(t, app, http.MethodPut, "/api/v1/evaluations/2026-02-03T09:00:00Z/outcome", `{"outcome":"went_in"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, app, http.MethodPut, "/api/v1/evaluations/2026-02-03T08:00:00Z/outcome", `{"outcome":"perhaps"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPut, "/api/v1/evaluations/2026-02-03T08:00:00Z/outcome", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPut, "/api/v1/evaluations/not-a-time/outcome", `{"outcome":"Yes"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}
