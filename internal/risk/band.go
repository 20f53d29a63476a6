package risk

// Band is the human-facing recommendation derived from a score.
type Band string

const (
	BandSafe       Band = "safe"
	BandBorderline Band = "borderline"
	BandCallOff    Band = "call_off"
)

// Label returns the wording shown to the operator.
func (b Band) Label() string {
	switch b {
	case BandSafe:
		return "Go in"
	case BandBorderline:
		return "Borderline"
	case BandCallOff:
		return "Call off"
	default:
		return "Unknown"
	}
}

// Bands holds the lower (inclusive) bound of each non-safe band.
type Bands struct {
	BorderlineAt int `json:"borderlineAt"`
	CallOffAt    int `json:"callOffAt"`
}

// DefaultBands are the stock thresholds: <40 safe, 40-69 borderline, >=70 call off.
var DefaultBands = Bands{BorderlineAt: 40, CallOffAt: 70}

// Classify maps a score onto a band.
func (b Bands) Classify(score int) Band {
	switch {
	case score >= b.CallOffAt:
		return BandCallOff
	case score >= b.BorderlineAt:
		return BandBorderline
	default:
		return BandSafe
	}
}

// Classify maps a score onto a band using DefaultBands.
func Classify(score int) Band {
	return DefaultBands.Classify(score)
}
