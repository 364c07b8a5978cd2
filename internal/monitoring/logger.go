// Package monitoring holds the diagnostic logger shared by the analysis
// packages. Diagnostics go to stderr so standard output only carries the
// derived constants.
package monitoring

import (
	"log"
	"time"

	"github.com/banshee-data/diffusion.report/internal/timeutil"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var clock timeutil.Clock = timeutil.RealClock{}

// SetClock replaces the clock used to time stages. Passing nil restores the
// wall clock.
func SetClock(c timeutil.Clock) {
	if c == nil {
		c = timeutil.RealClock{}
	}
	clock = c
}

// Stage logs the start of a named pipeline stage and returns a function that
// logs its completion along with the elapsed time.
//
//	done := monitoring.Stage("load table")
//	defer done()
func Stage(name string) func() {
	start := clock.Now()
	Logf("%s...", name)
	return func() {
		Logf("%s done in %s", name, clock.Since(start).Round(time.Millisecond))
	}
}
