package figure

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/diffusion.report/internal/diffusion"
)

const pageTitle = "MSD diffusion analysis"

// ViewOptions controls the interactive page.
type ViewOptions struct {
	// MaxPoints bounds the raw samples drawn per series.
	MaxPoints int
	// AssetsHost is where the page loads echarts from.
	AssetsHost string
}

// Overview returns Figure A as three log-log charts.
func Overview(a *diffusion.Analysis, vo ViewOptions) []*charts.Line {
	var out []*charts.Line
	for _, pn := range panels(a) {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Width: "900px", Height: "560px", AssetsHost: vo.AssetsHost}),
			charts.WithTitleOpts(opts.Title{Title: pn.title}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Left: "left", Top: "30px"}),
			charts.WithXAxisOpts(opts.XAxis{Type: "log", Name: "Time", NameLocation: "middle", NameGap: 25, Min: XMin, Max: XMax}),
			charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: pn.yLabel, NameLocation: "middle", NameGap: 45}),
		)

		var raw []opts.LineData
		if n := len(a.Table.Time); n > 1 {
			raw = lineData(a.Table.Time[1:], pn.ys[1:], vo.MaxPoints, true)
		}
		line.AddSeries(pn.label, raw,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1, Color: hex(pn.line)}),
		)

		fitYs := pn.fit.Eval(a.FitTimes)
		markers := make([]opts.ScatterData, 0, len(a.FitTimes))
		for i, x := range a.FitTimes {
			if x <= 0 || fitYs[i] <= 0 {
				continue
			}
			markers = append(markers, opts.ScatterData{Value: []interface{}{x, fitYs[i]}, Symbol: "emptyTriangle", SymbolSize: 8})
		}
		scatter := charts.NewScatter()
		scatter.AddSeries("Fit", markers, charts.WithItemStyleOpts(opts.ItemStyle{Color: hex(pn.marker)}))
		line.Overlap(scatter)

		out = append(out, line)
	}
	return out
}

// MSDXLinear returns Figure B: MSD_x against time on linear axes with the
// fitted line dashed.
func MSDXLinear(a *diffusion.Analysis, vo ViewOptions) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Width: "600px", Height: "500px", AssetsHost: vo.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "MSD_x vs Time"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time", NameLocation: "middle", NameGap: 25, SplitLine: &opts.SplitLine{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "MSD_x", NameLocation: "middle", NameGap: 45, SplitLine: &opts.SplitLine{Show: opts.Bool(true)}}),
	)

	line.AddSeries("MSD_x", lineData(a.Table.Time, a.Table.MSDX, vo.MaxPoints, false),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: hex(blue)}),
	)
	line.AddSeries("Fit", lineData(a.FitTimes, a.Fits.MSDX.Eval(a.FitTimes), 0, false),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: hex(red), Type: "dashed"}),
	)
	return line
}

// Page bundles both figures into one HTML page.
func Page(a *diffusion.Analysis, vo ViewOptions) *components.Page {
	page := components.NewPage()
	page.PageTitle = pageTitle
	page.SetAssetsHost(vo.AssetsHost)
	page.SetLayout(components.PageFlexLayout)
	for _, c := range Overview(a, vo) {
		page.AddCharts(c)
	}
	page.AddCharts(MSDXLinear(a, vo))
	return page
}

// RenderPage writes the interactive HTML page to w.
func RenderPage(w io.Writer, a *diffusion.Analysis, vo ViewOptions) error {
	if err := Page(a, vo).Render(w); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// lineData pairs xs with ys as echarts points. A positive maxPoints
// downsamples by stride, always keeping the final sample. Non-finite points
// are dropped, and with positiveOnly set so are points a log axis cannot
// show.
func lineData(xs, ys []float64, maxPoints int, positiveOnly bool) []opts.LineData {
	stride := 1
	if maxPoints > 0 && len(xs) > maxPoints {
		stride = int(math.Ceil(float64(len(xs)) / float64(maxPoints)))
	}

	data := make([]opts.LineData, 0, len(xs)/stride+1)
	add := func(i int) {
		if !finite(xs[i]) || !finite(ys[i]) {
			return
		}
		if positiveOnly && (xs[i] <= 0 || ys[i] <= 0) {
			return
		}
		data = append(data, opts.LineData{Value: []interface{}{xs[i], ys[i]}})
	}
	last := -1
	for i := 0; i < len(xs); i += stride {
		add(i)
		last = i
	}
	if n := len(xs); n > 0 && last != n-1 {
		add(n - 1)
	}
	return data
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
