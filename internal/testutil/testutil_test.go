package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestSeq(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, Seq(4, 0, 0.5))
	assert.Empty(t, Seq(0, 1, 1))
}

func TestRamp(t *testing.T) {
	t.Parallel()
	xs := []float64{0, 1, 2}
	assert.Equal(t, []float64{10, 10.5, 11}, Ramp(xs, 0.5, 10))
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, assert.AnError)
}
