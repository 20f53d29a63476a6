// Package risk turns a telemetry reading into a bounded call-off score and
// bands that score into a recommendation.
//
// The score is an additive rule: each factor is checked independently and
// contributes its weight when triggered, and the sum is clamped to [0,100].
// A factor whose input is missing never triggers.
package risk

import (
	"github.com/i474232898/calloff/internal/telemetry"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Weights are the points each factor contributes when triggered.
type Weights struct {
	LowTraffic         int `json:"lowTraffic"`
	PoorVisibility     int `json:"poorVisibility"`
	AdverseCondition   int `json:"adverseCondition"`
	TemperatureExtreme int `json:"temperatureExtreme"`
}

// Limits are the trigger points of each factor. All comparisons are strict.
type Limits struct {
	LowTrafficBelow      int     `json:"lowTrafficBelow"`
	VisibilityBelowMiles float64 `json:"visibilityBelowMiles"`
	TemperatureBelowF    float64 `json:"temperatureBelowF"`
	TemperatureAboveF    float64 `json:"temperatureAboveF"`
}

// Config is the full scoring configuration.
type Config struct {
	Weights    Weights    `json:"weights"`
	Limits     Limits     `json:"limits"`
	Vocabulary Vocabulary `json:"vocabulary"`
	Bands      Bands      `json:"bands"`
}

// DefaultConfig returns the stock weights (40/25/25/10), limits and bands.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			LowTraffic:         40,
			PoorVisibility:     25,
			AdverseCondition:   25,
			TemperatureExtreme: 10,
		},
		Limits: Limits{
			LowTrafficBelow:      10,
			VisibilityBelowMiles: 1.5,
			TemperatureBelowF:    15,
			TemperatureAboveF:    90,
		},
		Vocabulary: append(Vocabulary(nil), DefaultVocabulary...),
		Bands:      DefaultBands,
	}
}

// Factor names.
const (
	FactorLowTraffic         = "low_traffic"
	FactorPoorVisibility     = "poor_visibility"
	FactorAdverseCondition   = "adverse_condition"
	FactorTemperatureExtreme = "temperature_extreme"
)

// Factor is one triggered contribution to a score.
type Factor struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// Scorer computes scores and bands. It is stateless and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Factors returns the factors the reading triggers.
func (s *Scorer) Factors(r telemetry.Reading) []Factor {
	var out []Factor
	w, l := s.cfg.Weights, s.cfg.Limits

	if r.FlightCount != nil && *r.FlightCount < l.LowTrafficBelow {
		out = append(out, Factor{Name: FactorLowTraffic, Weight: w.LowTraffic})
	}

	if r.Weather != nil {
		if r.Weather.VisibilityMiles < l.VisibilityBelowMiles {
			out = append(out, Factor{Name: FactorPoorVisibility, Weight: w.PoorVisibility})
		}
		if s.cfg.Vocabulary.Matches(r.Weather.Summary) {
			out = append(out, Factor{Name: FactorAdverseCondition, Weight: w.AdverseCondition})
		}
		if t := r.Weather.TemperatureF; t < l.TemperatureBelowF || t > l.TemperatureAboveF {
			out = append(out, Factor{Name: FactorTemperatureExtreme, Weight: w.TemperatureExtreme})
		}
	}

	return out
}

// Score returns the clamped sum of triggered weights. It never fails.
func (s *Scorer) Score(r telemetry.Reading) int {
	sum := 0
	for _, f := range s.Factors(r) {
		sum += f.Weight
	}
	return clamp(sum)
}

// Classify bands a score with the scorer's thresholds.
func (s *Scorer) Classify(score int) Band {
	return s.cfg.Bands.Classify(score)
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
