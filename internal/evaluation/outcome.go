package evaluation

import (
	"fmt"
	"strings"
)

// Outcome is the operator's actual decision, recorded after the fact.
type Outcome string

const (
	OutcomeUnknown   Outcome = "unknown"
	OutcomeCalledOff Outcome = "called_off"
	OutcomeWentIn    Outcome = "went_in"
)

// Valid reports whether o is one of the defined outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeUnknown, OutcomeCalledOff, OutcomeWentIn:
		return true
	}
	return false
}

// Labeled reports whether the outcome is usable as a training label.
func (o Outcome) Labeled() bool {
	return o == OutcomeCalledOff || o == OutcomeWentIn
}

// CSV returns the value stored in the called_off column.
func (o Outcome) CSV() string {
	switch o {
	case OutcomeCalledOff:
		return "Yes"
	case OutcomeWentIn:
		return "No"
	default:
		return "Not yet"
	}
}

// ParseOutcome accepts both the API names and the called_off column values.
// An empty string is Unknown.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "not yet":
		return OutcomeUnknown, nil
	case "called_off", "yes":
		return OutcomeCalledOff, nil
	case "went_in", "no":
		return OutcomeWentIn, nil
	}
	return OutcomeUnknown, fmt.Errorf("%w: outcome %q", ErrInvalid, s)
}
