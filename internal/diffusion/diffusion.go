// Package diffusion turns an MSD table into effective diffusion coefficients
// and drift velocities.
//
// The MSD series are fitted over their last MSDWindow samples, where the
// particle has left the early transient and the MSD grows linearly in time.
// By the Einstein relation a single axis gives MSD = 2*D*t and the combined
// 2D signal gives MSD_total = 4*D*t. The drift fits run over the last
// DriftWindow samples of the signed mean displacements.
package diffusion

import (
	"fmt"

	"github.com/banshee-data/diffusion.report/internal/fit"
	"github.com/banshee-data/diffusion.report/internal/monitoring"
	"github.com/banshee-data/diffusion.report/internal/trajectory"
)

const (
	// MSDWindow is the tail length used for the MSD fits.
	MSDWindow = 90000
	// DriftWindow is the tail length used for the mean displacement fits.
	DriftWindow = 900000
	// FitSamples is the number of points at which fitted lines are drawn.
	FitSamples = 50

	axisFactor  = 2.0
	totalFactor = 4.0
)

// Fits holds the five independent line fits.
type Fits struct {
	MSDX     fit.Line
	MSDY     fit.Line
	MSDTotal fit.Line
	MeanX    fit.Line
	MeanY    fit.Line
}

// Constants are the derived physical quantities.
type Constants struct {
	Dx     float64 `json:"d_x"`
	Dy     float64 `json:"d_y"`
	DTotal float64 `json:"d_total"`
	Vx     float64 `json:"v_x"`
	Vy     float64 `json:"v_y"`
}

// Derive converts fit slopes into diffusion coefficients and drift
// velocities.
func Derive(f Fits) Constants {
	return Constants{
		Dx:     f.MSDX.Slope / axisFactor,
		Dy:     f.MSDY.Slope / axisFactor,
		DTotal: f.MSDTotal.Slope / totalFactor,
		Vx:     f.MeanX.Slope,
		Vy:     f.MeanY.Slope,
	}
}

// Analysis is the result of one pass over a table.
type Analysis struct {
	Table     *trajectory.Table
	MSDTotal  []float64
	Fits      Fits
	Constants Constants

	// FitTimes are FitSamples evenly spaced times across the MSD window.
	FitTimes []float64
}

// Analyse fits every series and derives the constants.
func Analyse(t *trajectory.Table) (*Analysis, error) {
	n := t.Len()
	if n == 0 {
		return nil, fmt.Errorf("analyse: %w", fit.ErrEmptySeries)
	}

	a := &Analysis{Table: t, MSDTotal: t.MSDTotal()}

	targets := []struct {
		name   string
		ys     []float64
		window int
		dst    *fit.Line
	}{
		{trajectory.ColMSDX, t.MSDX, MSDWindow, &a.Fits.MSDX},
		{trajectory.ColMSDY, t.MSDY, MSDWindow, &a.Fits.MSDY},
		{"msd_total", a.MSDTotal, MSDWindow, &a.Fits.MSDTotal},
		{trajectory.ColMeanX, t.MeanX, DriftWindow, &a.Fits.MeanX},
		{trajectory.ColMeanY, t.MeanY, DriftWindow, &a.Fits.MeanY},
	}
	for _, tg := range targets {
		l, err := fit.TailWindow(t.Time, tg.ys, tg.window)
		if err != nil {
			return nil, fmt.Errorf("fit %s: %w", tg.name, err)
		}
		*tg.dst = l
		if tg.window > n {
			monitoring.Logf("fit %s: window %d exceeds %d rows, using all rows: %s", tg.name, tg.window, n, l)
		} else {
			monitoring.Logf("fit %s over last %d rows: %s", tg.name, tg.window, l)
		}
	}

	a.Constants = Derive(a.Fits)
	a.FitTimes = fit.Samples(t.Time[fit.TailStart(n, MSDWindow)], t.Time[n-1], FitSamples)
	return a, nil
}
