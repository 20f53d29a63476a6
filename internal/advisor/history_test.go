package advisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/risk"
	"github.com/i474232898/calloff/internal/telemetry"
)

// seed logs rows at the given local Chicago times with the given scores.
func seed(t *testing.T, f *fixture, rows map[time.Time]int) {
	t.Helper()
	for ts, score := range rows {
		require.NoError(t, f.log.Append(context.Background(), evaluation.New(ts, score, telemetry.Reading{})))
	}
}

func TestHistoryFilters(t *testing.T) {
	f := newFixture(t, nil)
	day := func(d, h, m int) time.Time { return time.Date(2026, 2, d, h, m, 0, 0, chicago) }
	seed(t, f, map[time.Time]int{
		day(2, 23, 50): 10,
		day(3, 5, 0):   80,
		day(3, 9, 30):  50,
		day(3, 17, 0):  20,
		// 00:10 local on Feb 4 is 06:10 UTC on Feb 4.
		day(4, 0, 10): 70,
	})
	ctx := context.Background()

	all, err := f.svc.History(ctx, DefaultHistoryQuery())
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, 70, all[0].Score, "newest first")
	assert.Equal(t, risk.BandCallOff, all[0].Band)
	assert.Equal(t, "Call off", all[0].Label)

	q := DefaultHistoryQuery()
	q.Date = "2026-02-03"
	q.FromHour, q.ToHour = 6, 17
	q.Descending = false
	got, err := f.svc.History(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 50, got[0].Score)
	assert.Equal(t, 20, got[1].Score)

	q.Limit = 1
	got, err = f.svc.History(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 50, got[0].Score)
}

func TestLatest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Latest(ctx)
	assert.ErrorIs(t, err, evaluation.ErrNotFound)

	seed(t, f, map[time.Time]int{
		time.Date(2026, 2, 3, 7, 0, 0, 0, chicago): 45,
		time.Date(2026, 2, 3, 7, 1, 0, 0, chicago): 65,
	})
	latest, err := f.svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 65, latest.Score)
	assert.Equal(t, risk.BandBorderline, latest.Band)
}

func TestSummarizeAndDates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seed(t, f, map[time.Time]int{
		time.Date(2026, 2, 3, 6, 0, 0, 0, chicago):  90,
		time.Date(2026, 2, 3, 7, 0, 0, 0, chicago):  40,
		time.Date(2026, 2, 3, 8, 0, 0, 0, chicago):  20,
		time.Date(2026, 2, 3, 22, 0, 0, 0, chicago): 10,
		time.Date(2026, 2, 5, 6, 0, 0, 0, chicago):  75,
	})
	require.NoError(t, f.log.BackfillOutcome(ctx, time.Date(2026, 2, 3, 6, 0, 0, 0, chicago), evaluation.OutcomeCalledOff))

	sum, err := f.svc.Summarize(ctx, "2026-02-03")
	require.NoError(t, err)
	assert.Equal(t, alert.Date("2026-02-03"), sum.Date)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 1, sum.Severe)
	assert.Equal(t, map[risk.Band]int{risk.BandSafe: 2, risk.BandBorderline: 1, risk.BandCallOff: 1}, sum.Bands)
	assert.InDelta(t, 40.0, sum.AverageScore, 1e-9)
	assert.Equal(t, 90, sum.MaxScore)
	assert.Equal(t, 1, sum.Labeled)

	empty, err := f.svc.Summarize(ctx, "2026-02-04")
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AverageScore)

	dates, err := f.svc.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alert.Date{"2026-02-05", "2026-02-03"}, dates)
}
