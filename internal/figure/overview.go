package figure

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"

	"github.com/banshee-data/diffusion.report/internal/diffusion"
	"github.com/banshee-data/diffusion.report/internal/fsutil"
	"github.com/banshee-data/diffusion.report/internal/monitoring"
)

const (
	overviewWidth  = 10 * vg.Inch
	overviewHeight = 8 * vg.Inch

	// boxAspect is the height/width ratio of every panel.
	boxAspect = 0.75

	// y range of a panel with nothing to draw
	emptyYMin = 1e-1
	emptyYMax = 1e1
)

// SaveOverview writes Figure A to path on fsys. The file format follows the
// path extension.
func SaveOverview(fsys fsutil.FileSystem, a *diffusion.Analysis, path string) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := RenderOverview(f, a, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderOverview draws Figure A in the given format ("pdf", "png", "svg", ...)
// and writes it to w. MSD_x and MSD_y share the top row; MSD_total spans the
// bottom row.
func RenderOverview(w io.Writer, a *diffusion.Analysis, format string) error {
	plots, err := overviewPlots(a)
	if err != nil {
		return err
	}

	c, err := draw.NewFormattedCanvas(overviewWidth, overviewHeight, format)
	if err != nil {
		return fmt.Errorf("overview canvas: %w", err)
	}

	cells := layout(draw.New(c))
	for i, p := range plots {
		p.Draw(withAspect(cells[i], boxAspect))
	}

	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write overview: %w", err)
	}
	return nil
}

// overviewPlots builds the three log-log panels.
func overviewPlots(a *diffusion.Analysis) ([]*plot.Plot, error) {
	var plots []*plot.Plot
	for _, pn := range panels(a) {
		p, err := logPanel(a.Table.Time, a.FitTimes, pn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pn.label, err)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// logPanel plots the raw series from its second sample onward and the fitted
// line as open triangles. Points a log axis cannot place are masked; a
// series with none left is simply not drawn.
func logPanel(ts, fitTimes []float64, pn panel) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = pn.title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = pn.yLabel
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	empty := true
	var raw plotter.XYs
	if len(ts) > 1 {
		raw = positiveXYs(ts[1:], pn.ys[1:])
	}
	if len(raw) > 0 {
		line, err := plotter.NewLine(raw)
		if err != nil {
			return nil, err
		}
		line.Color = pn.line
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(pn.label, line)
		empty = false
	}

	if fitPts := positiveXYs(fitTimes, pn.fit.Eval(fitTimes)); len(fitPts) > 0 {
		scatter, err := plotter.NewScatter(fitPts)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle = draw.GlyphStyle{
			Color:  pn.marker,
			Radius: vg.Points(2.5),
			Shape:  draw.TriangleGlyph{},
		}
		markers := unclipped{scatter}
		p.Add(markers)
		p.Legend.Add("Fit", markers)
		empty = false
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = vg.Points(10)
	p.Legend.YOffs = -vg.Points(5)

	if empty {
		monitoring.Logf("%s has no positive samples, drawing an empty panel", pn.label)
		// A log axis needs a positive range even with nothing on it.
		p.Y.Min = emptyYMin
		p.Y.Max = emptyYMax
	} else if p.Y.Min == p.Y.Max {
		// widen a single-valued range by a decade each way
		p.Y.Min /= 10
		p.Y.Max *= 10
	}
	p.X.Min = XMin
	p.X.Max = XMax
	return p, nil
}

// unclipped draws scatter glyphs even where they fall outside the axes, so
// fit markers at the edge of the time range stay visible.
type unclipped struct {
	*plotter.Scatter
}

// Plot implements plot.Plotter.
func (u unclipped) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, pt := range u.XYs {
		c.DrawGlyphNoClip(u.GlyphStyle, vg.Point{X: trX(pt.X), Y: trY(pt.Y)})
	}
}

// positiveXYs pairs xs with ys, dropping points a log axis cannot place.
func positiveXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(xs))
	for i, x := range xs {
		if x > 0 && ys[i] > 0 {
			pts = append(pts, plotter.XY{X: x, Y: ys[i]})
		}
	}
	return pts
}

// layout splits the canvas into top-left, top-right and a full-width bottom
// cell.
func layout(dc draw.Canvas) []draw.Canvas {
	size := dc.Size()
	w, h := size.X, size.Y
	return []draw.Canvas{
		draw.Crop(dc, 0, -w/2, h/2, 0),
		draw.Crop(dc, w/2, 0, h/2, 0),
		draw.Crop(dc, 0, 0, 0, -h/2),
	}
}

// withAspect shrinks c around its centre to the given height/width ratio.
func withAspect(c draw.Canvas, aspect float64) draw.Canvas {
	size := c.Size()
	if want := size.X * vg.Length(aspect); want < size.Y {
		pad := (size.Y - want) / 2
		return draw.Crop(c, 0, 0, pad, -pad)
	}
	want := size.Y / vg.Length(aspect)
	pad := (size.X - want) / 2
	return draw.Crop(c, pad, -pad, 0, 0)
}
