package risk

import (
	"fmt"
	"time"
)

// InvalidRiskLevelError reports a risk level string outside the
// four-value enum. Raised at the boundary, never silently coerced.
type InvalidRiskLevelError struct {
	Input string
}

func (e *InvalidRiskLevelError) Error() string {
	return fmt.Sprintf("invalid risk level %q: must be one of low, medium, high, critical", e.Input)
}

// InvalidDateRangeError reports a windowed query whose end date
// precedes its start date.
type InvalidDateRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s precedes start %s",
		e.End.Format("2006-01-02"), e.Start.Format("2006-01-02"))
}

// ConfigurationError reports a component constructed without a
// required collaborator. Components fail fast at construction rather
// than at call time.
type ConfigurationError struct {
	Component string
	Missing   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing required collaborator %s", e.Component, e.Missing)
}

// ValidateWindow rejects windows where end precedes start. Zero times
// are treated as open bounds and are always valid.
func ValidateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	if end.Before(start) {
		return &InvalidDateRangeError{Start: start, End: end}
	}
	return nil
}
