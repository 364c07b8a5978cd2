// Package figure renders the diagnostic figures of an MSD analysis.
//
// Figure A (the overview) shows MSD_x, MSD_y and MSD_total on log-log axes
// with open triangles along the fitted lines. It is written as a document
// with gonum/plot and also rendered, together with Figure B (MSD_x against
// time on linear axes with the dashed fit), as an interactive go-echarts
// page for the viewer.
package figure

import (
	"fmt"
	"image/color"

	"github.com/banshee-data/diffusion.report/internal/diffusion"
	"github.com/banshee-data/diffusion.report/internal/fit"
)

const (
	// OverviewPath is where Figure A is saved.
	OverviewPath = "Dt_1.pdf"

	// XMin and XMax clip the time axis of the overview panels.
	XMin float64 = 1e-4
	XMax float64 = 100
)

var (
	blue      = color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}
	navy      = color.RGBA{R: 0x00, G: 0x00, B: 0x80, A: 0xff}
	red       = color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
	purple    = color.RGBA{R: 0x80, G: 0x00, B: 0x80, A: 0xff}
	green     = color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff}
	darkGreen = color.RGBA{R: 0x00, G: 0x64, B: 0x00, A: 0xff}
)

// panel describes one log-log MSD panel of the overview.
type panel struct {
	title  string
	yLabel string
	label  string
	ys     []float64
	fit    fit.Line
	line   color.RGBA
	marker color.RGBA
}

// panels returns MSD_x, MSD_y and MSD_total in drawing order.
func panels(a *diffusion.Analysis) []panel {
	c := a.Constants
	return []panel{
		{
			title:  fmt.Sprintf("MSD_x | D ≈ %.3f", c.Dx),
			yLabel: "MSD_x",
			label:  "MSD_x",
			ys:     a.Table.MSDX,
			fit:    a.Fits.MSDX,
			line:   blue,
			marker: navy,
		},
		{
			title:  fmt.Sprintf("MSD_y | D ≈ %.3f", c.Dy),
			yLabel: "MSD_y",
			label:  "MSD_y",
			ys:     a.Table.MSDY,
			fit:    a.Fits.MSDY,
			line:   red,
			marker: purple,
		},
		{
			title:  fmt.Sprintf("MSD_total = MSD_x + MSD_y | D ≈ %.3f", c.DTotal),
			yLabel: "Total MSD",
			label:  "MSD_total",
			ys:     a.MSDTotal,
			fit:    a.Fits.MSDTotal,
			line:   green,
			marker: darkGreen,
		},
	}
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
