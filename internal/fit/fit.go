// Package fit provides the tail-window ordinary least squares line fit used
// to turn MSD and mean displacement series into slopes.
package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/diffusion.report/internal/monitoring"
)

var (
	// ErrEmptySeries is returned when there are no points to fit.
	ErrEmptySeries = errors.New("empty series")
	// ErrLengthMismatch is returned when x and y differ in length.
	ErrLengthMismatch = errors.New("x and y lengths differ")
)

// Line is a first-degree polynomial y = Slope*x + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// Eval evaluates the line at every x.
func (l Line) Eval(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = l.At(x)
	}
	return out
}

// String formats the line for log output.
func (l Line) String() string {
	return fmt.Sprintf("y = %g*x + %g", l.Slope, l.Intercept)
}

// TailStart returns the index of the first of the last k of n samples. When
// n < k the window is the whole series.
func TailStart(n, k int) int {
	if k >= n {
		return 0
	}
	return n - k
}

// TailWindow fits an unweighted least squares line through the last k
// (x, y) pairs. A series shorter than k is fitted in full. A window with
// fewer than two distinct x values yields a NaN slope and a logged warning.
func TailWindow(xs, ys []float64, k int) (Line, error) {
	if len(xs) != len(ys) {
		return Line{}, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(xs), len(ys))
	}
	if len(xs) == 0 {
		return Line{}, ErrEmptySeries
	}
	if k <= 0 {
		return Line{}, fmt.Errorf("window must be positive, got %d", k)
	}

	start := TailStart(len(xs), k)
	intercept, slope := stat.LinearRegression(xs[start:], ys[start:], nil, false)
	switch n := len(xs) - start; {
	case n < 2:
		monitoring.Logf("warning: fit window holds %d point, slope is undefined", n)
	case math.IsNaN(slope):
		monitoring.Logf("warning: fit window x values are all equal, slope is undefined")
	}
	return Line{Slope: slope, Intercept: intercept}, nil
}

// Samples returns n evenly spaced values from x0 to x1 inclusive.
func Samples(x0, x1 float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{x0}
	}
	return floats.Span(make([]float64, n), x0, x1)
}
