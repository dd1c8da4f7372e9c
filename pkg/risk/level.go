package risk

import "strings"

// Level is the ordinal clinical severity category assigned to an AI
// disease-detection result. Comparisons must always go through
// Ordinal; risk level strings are never compared lexicographically.
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

var levelOrdinals = map[Level]int{
	Low:      1,
	Medium:   2,
	High:     3,
	Critical: 4,
}

// Levels returns the four valid levels in ascending severity order.
func Levels() []Level {
	return []Level{Low, Medium, High, Critical}
}

// ParseLevel canonicalizes a risk level string (case-insensitive) to
// its lowercase form. Any string outside the four-value enum yields an
// *InvalidRiskLevelError.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelOrdinals[level]; !ok {
		return "", &InvalidRiskLevelError{Input: s}
	}
	return level, nil
}

// Ordinal maps low→1, medium→2, high→3, critical→4.
func (l Level) Ordinal() int {
	return levelOrdinals[l]
}

// Ordinal parses and ranks a risk level string in one step.
func Ordinal(s string) (int, error) {
	level, err := ParseLevel(s)
	if err != nil {
		return 0, err
	}
	return level.Ordinal(), nil
}
