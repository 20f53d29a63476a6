package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/calloff/internal/telemetry"
)

func reading(flights *int, w *telemetry.Weather) telemetry.Reading {
	return telemetry.Reading{FlightCount: flights, Weather: w}
}

func intp(v int) *int { return &v }

func TestScoreAllFactors(t *testing.T) {
	s := NewScorer(DefaultConfig())

	r := reading(intp(5), &telemetry.Weather{Summary: "Fog (light fog)", TemperatureF: 10, VisibilityMiles: 1.0})

	assert.Equal(t, 100, s.Score(r))
	assert.Equal(t, BandCallOff, s.Classify(s.Score(r)))
	assert.Len(t, s.Factors(r), 4)
}

func TestScoreNoData(t *testing.T) {
	s := NewScorer(DefaultConfig())

	score := s.Score(telemetry.Reading{})

	assert.Equal(t, 0, score)
	assert.Equal(t, BandSafe, Classify(score))
	assert.Empty(t, s.Factors(telemetry.Reading{}))
}

func TestScoreIndividualFactors(t *testing.T) {
	s := NewScorer(DefaultConfig())
	mild := telemetry.Weather{Summary: "Clear", TemperatureF: 60, VisibilityMiles: 10}

	tests := []struct {
		name string
		r    telemetry.Reading
		want int
	}{
		{"busy and clear", reading(intp(40), &mild), 0},
		{"low traffic only", reading(intp(9), nil), 40},
		{"traffic at limit", reading(intp(10), nil), 0},
		{"zero flights", reading(intp(0), nil), 40},
		{"visibility just below", reading(nil, &telemetry.Weather{Summary: "Clear", TemperatureF: 60, VisibilityMiles: 1.49}), 25},
		{"visibility at limit", reading(nil, &telemetry.Weather{Summary: "Clear", TemperatureF: 60, VisibilityMiles: 1.5}), 0},
		{"snow uppercase", reading(nil, &telemetry.Weather{Summary: "HEAVY SNOW", TemperatureF: 60, VisibilityMiles: 10}), 25},
		{"thunderstorm", reading(nil, &telemetry.Weather{Summary: "Thunderstorm", TemperatureF: 60, VisibilityMiles: 10}), 25},
		{"cold", reading(nil, &telemetry.Weather{Summary: "Clear", TemperatureF: 14.9, VisibilityMiles: 10}), 10},
		{"cold limit", reading(nil, &telemetry.Weather{Summary: "Clear", TemperatureF: 15, VisibilityMiles: 10}), 0},
		{"hot", reading(nil, &telemetry.Weather{Summary: "Clear", TemperatureF: 90.1, VisibilityMiles: 10}), 10},
		{"hot limit", reading(nil, &telemetry.Weather{Summary: "Clear", TemperatureF: 90, VisibilityMiles: 10}), 0},
		{"traffic plus rain", reading(intp(3), &telemetry.Weather{Summary: "Light rain", TemperatureF: 50, VisibilityMiles: 5}), 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.r))
		})
	}
}

func TestScoreIsClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{LowTraffic: 80, PoorVisibility: 80, AdverseCondition: 80, TemperatureExtreme: 80}
	s := NewScorer(cfg)

	r := reading(intp(1), &telemetry.Weather{Summary: "rain", TemperatureF: 0, VisibilityMiles: 0})
	assert.Equal(t, MaxScore, s.Score(r))

	cfg.Weights = Weights{LowTraffic: -50}
	s = NewScorer(cfg)
	assert.Equal(t, MinScore, s.Score(reading(intp(1), nil)))
}

func TestScoreTotality(t *testing.T) {
	s := NewScorer(DefaultConfig())
	flights := []*int{nil, intp(0), intp(9), intp(10), intp(500)}
	weathers := []*telemetry.Weather{
		nil,
		{},
		{Summary: "Snow", TemperatureF: -40, VisibilityMiles: 0},
		{Summary: "Sunny", TemperatureF: 120, VisibilityMiles: 20},
	}

	for _, f := range flights {
		for _, w := range weathers {
			score := s.Score(reading(f, w))
			assert.GreaterOrEqual(t, score, MinScore)
			assert.LessOrEqual(t, score, MaxScore)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, BandSafe, Classify(0))
	assert.Equal(t, BandSafe, Classify(39))
	assert.Equal(t, BandBorderline, Classify(40))
	assert.Equal(t, BandBorderline, Classify(69))
	assert.Equal(t, BandCallOff, Classify(70))
	assert.Equal(t, BandCallOff, Classify(100))
}

func TestCustomBands(t *testing.T) {
	b := Bands{BorderlineAt: 25, CallOffAt: 50}

	assert.Equal(t, BandSafe, b.Classify(24))
	assert.Equal(t, BandBorderline, b.Classify(25))
	assert.Equal(t, BandCallOff, b.Classify(50))
}

func TestBandLabel(t *testing.T) {
	assert.Equal(t, "Go in", BandSafe.Label())
	assert.Equal(t, "Borderline", BandBorderline.Label())
	assert.Equal(t, "Call off", BandCallOff.Label())
}

func TestVocabularyMatches(t *testing.T) {
	v := DefaultVocabulary

	assert.True(t, v.Matches("Patchy light RAIN"))
	assert.True(t, v.Matches("Freezing fog"))
	assert.False(t, v.Matches("Overcast"))
	assert.False(t, v.Matches(""))
	assert.False(t, Vocabulary(nil).Matches("rain"))
}
