// Package report prints the derived constants and the run history.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/diffusion.report/internal/diffusion"
	"github.com/banshee-data/diffusion.report/internal/store"
)

// Write prints the five constants, one per line, to five decimal places.
func Write(w io.Writer, c diffusion.Constants) error {
	lines := []struct {
		format string
		value  float64
	}{
		{"Effective diffusion constant Dx: %.5f\n", c.Dx},
		{"Effective diffusion constant Dy: %.5f\n", c.Dy},
		{"Effective diffusion constant Dtotal: %.5f\n", c.DTotal},
		{"Slope of mean_dx vs time (v_x): %.5f\n", c.Vx},
		{"Slope of mean_dy vs time (v_y): %.5f\n", c.Vy},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, l.format, l.value); err != nil {
			return err
		}
	}
	return nil
}

// WriteHistory prints the ledger schema version and then one line per stored
// run, in the order given.
func WriteHistory(w io.Writer, schema uint, runs []store.Run) error {
	if _, err := fmt.Fprintf(w, "results schema v%d, %d run(s)\n", schema, len(runs)); err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no recorded runs")
		return err
	}
	if _, err := fmt.Fprintf(w, "%-36s  %-20s  %8s  %9s  %9s  %9s  %9s  %9s  %s\n",
		"run", "created", "rows", "Dx", "Dy", "Dtotal", "v_x", "v_y", "input"); err != nil {
		return err
	}
	for _, r := range runs {
		c := r.Constants
		if _, err := fmt.Fprintf(w, "%-36s  %-20s  %8d  %9.5f  %9.5f  %9.5f  %9.5f  %9.5f  %s\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Rows,
			c.Dx, c.Dy, c.DTotal, c.Vx, c.Vy, r.InputPath); err != nil {
			return err
		}
	}
	return nil
}
