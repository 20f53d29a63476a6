package alert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/calloff/internal/evaluation"
	"github.com/i474232898/calloff/internal/risk"
)

const notAvailable = "n/a"

// FormatMessage renders the notification text for an evaluation.
func FormatMessage(airport string, band risk.Band, ev evaluation.Evaluation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s recommendation", band.Label())
	if airport != "" {
		fmt.Fprintf(&b, " for %s", airport)
	}
	fmt.Fprintf(&b, ": risk score %d/100\n", ev.Score)

	flights := notAvailable
	if ev.FlightCount != nil {
		flights = strconv.Itoa(*ev.FlightCount)
	}
	condition := notAvailable
	if ev.Condition != nil && *ev.Condition != "" {
		condition = *ev.Condition
	}
	visibility := notAvailable
	if ev.VisibilityMiles != nil {
		visibility = fmt.Sprintf("%.1f mi", *ev.VisibilityMiles)
	}
	temp := notAvailable
	if ev.TemperatureF != nil {
		temp = fmt.Sprintf("%.0f°F", *ev.TemperatureF)
	}

	fmt.Fprintf(&b, "Flights nearby: %s\n", flights)
	fmt.Fprintf(&b, "Condition: %s\n", condition)
	fmt.Fprintf(&b, "Visibility: %s\n", visibility)
	fmt.Fprintf(&b, "Temperature: %s", temp)

	return b.String()
}
