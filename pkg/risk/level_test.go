package risk

import (
	"errors"
	"testing"
)

func TestParseLevelCanonicalizes(t *testing.T) {
	cases := map[string]Level{
		"low":      Low,
		"LOW":      Low,
		" Medium ": Medium,
		"High":     High,
		"CRITICAL": Critical,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "severe", "moderate", "none", "lowish", "4"} {
		_, err := ParseLevel(input)
		if err == nil {
			t.Fatalf("ParseLevel(%q) should fail", input)
		}
		var invalid *InvalidRiskLevelError
		if !errors.As(err, &invalid) {
			t.Fatalf("ParseLevel(%q) returned %T, want *InvalidRiskLevelError", input, err)
		}
		if invalid.Input != input {
			t.Fatalf("error carries input %q, want %q", invalid.Input, input)
		}
	}
}

func TestOrdinalOrder(t *testing.T) {
	expected := map[string]int{"low": 1, "medium": 2, "high": 3, "critical": 4}
	for level, want := range expected {
		got, err := Ordinal(level)
		if err != nil {
			t.Fatalf("Ordinal(%q) returned error: %v", level, err)
		}
		if got != want {
			t.Fatalf("Ordinal(%q) = %d, want %d", level, got, want)
		}
	}
}
