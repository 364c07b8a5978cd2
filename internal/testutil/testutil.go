// Package testutil provides shared test helpers and synthetic series.
package testutil

import "testing"

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Seq returns n evenly spaced values starting at start with the given step.
func Seq(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Ramp returns slope*x + intercept for every x, a noise-free line.
func Ramp(xs []float64, slope, intercept float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = slope*x + intercept
	}
	return out
}
