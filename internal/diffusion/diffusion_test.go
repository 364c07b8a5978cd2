package diffusion

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/diffusion.report/internal/fit"
	"github.com/banshee-data/diffusion.report/internal/monitoring"
	"github.com/banshee-data/diffusion.report/internal/testutil"
	"github.com/banshee-data/diffusion.report/internal/trajectory"
)

const tol = 1e-9

func init() {
	monitoring.SetLogger(nil)
}

func syntheticTable(n int, dt float64) *trajectory.Table {
	ts := testutil.Seq(n, 0, dt)
	return &trajectory.Table{
		Time:  ts,
		MSDX:  testutil.Ramp(ts, 2.4, 0.01),
		MSDY:  testutil.Ramp(ts, 1.6, -0.02),
		MeanX: testutil.Ramp(ts, 0.5, 10),
		MeanY: testutil.Ramp(ts, -0.25, 3),
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	got := Derive(Fits{
		MSDX:     fit.Line{Slope: 2},
		MSDY:     fit.Line{Slope: 3},
		MSDTotal: fit.Line{Slope: 5},
		MeanX:    fit.Line{Slope: 0.5, Intercept: 10},
		MeanY:    fit.Line{Slope: -0.1},
	})
	want := Constants{Dx: 1, Dy: 1.5, DTotal: 1.25, Vx: 0.5, Vy: -0.1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Derive() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyse_SyntheticTable(t *testing.T) {
	t.Parallel()

	tbl := syntheticTable(2000, 0.001)
	a, err := Analyse(tbl)
	require.NoError(t, err)

	want := Constants{Dx: 1.2, Dy: 0.8, DTotal: 1.0, Vx: 0.5, Vy: -0.25}
	if diff := cmp.Diff(want, a.Constants, cmpopts.EquateApprox(0, tol)); diff != "" {
		t.Errorf("constants mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, 0.01, a.Fits.MSDX.Intercept, tol)
	assert.InDelta(t, -0.01, a.Fits.MSDTotal.Intercept, tol)
	assert.InDelta(t, 10, a.Fits.MeanX.Intercept, tol)
}

func TestAnalyse_TotalMatchesAxisSlopes(t *testing.T) {
	t.Parallel()

	tbl := syntheticTable(500, 0.01)
	a, err := Analyse(tbl)
	require.NoError(t, err)

	assert.InDelta(t, (a.Fits.MSDX.Slope+a.Fits.MSDY.Slope)/4, a.Constants.DTotal, tol)
	assert.InDelta(t, (a.Constants.Dx+a.Constants.Dy)/2, a.Constants.DTotal, tol)
}

func TestAnalyse_MSDScenario(t *testing.T) {
	t.Parallel()

	// 100 rows with time 0..99 and msd_x = 2*time: D_x = 1
	ts := testutil.Seq(100, 0, 1)
	tbl := &trajectory.Table{
		Time:  ts,
		MSDX:  testutil.Ramp(ts, 2, 0),
		MSDY:  testutil.Ramp(ts, 2, 0),
		MeanX: make([]float64, 100),
		MeanY: make([]float64, 100),
	}

	a, err := Analyse(tbl)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, a.Fits.MSDX.Slope, tol)
	assert.InDelta(t, 0.0, a.Fits.MSDX.Intercept, tol)
	assert.InDelta(t, 1.0, a.Constants.Dx, tol)
	assert.InDelta(t, 1.0, a.Constants.DTotal, tol)
	assert.InDelta(t, 0.0, a.Constants.Vx, tol)
}

func TestDriftScenario(t *testing.T) {
	t.Parallel()

	// meanx = 0.5*time + 10 over 1000 rows
	ts := testutil.Seq(1000, 0, 1)
	mx := testutil.Ramp(ts, 0.5, 10)

	l, err := fit.TailWindow(ts, mx, 900)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, l.Slope, tol)

	// the production window is longer than the table and falls back to all rows
	tbl := &trajectory.Table{Time: ts, MSDX: mx, MSDY: mx, MeanX: mx, MeanY: mx}
	a, err := Analyse(tbl)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, a.Constants.Vx, tol)
}

func TestAnalyse_FitTimes(t *testing.T) {
	t.Parallel()

	t.Run("short table spans every row", func(t *testing.T) {
		t.Parallel()
		a, err := Analyse(syntheticTable(300, 0.5))
		require.NoError(t, err)
		require.Len(t, a.FitTimes, FitSamples)
		assert.Equal(t, 0.0, a.FitTimes[0])
		assert.InDelta(t, 149.5, a.FitTimes[FitSamples-1], tol)
	})

	t.Run("long table spans the MSD window", func(t *testing.T) {
		t.Parallel()
		tbl := syntheticTable(MSDWindow+10, 1)
		a, err := Analyse(tbl)
		require.NoError(t, err)
		require.Len(t, a.FitTimes, FitSamples)
		assert.Equal(t, 10.0, a.FitTimes[0])
		assert.InDelta(t, float64(MSDWindow+9), a.FitTimes[FitSamples-1], 1e-6)
	})
}

func TestAnalyse_DoesNotMutateTable(t *testing.T) {
	t.Parallel()

	tbl := syntheticTable(50, 1)
	before := *tbl
	before.MSDX = append([]float64(nil), tbl.MSDX...)

	a, err := Analyse(tbl)
	require.NoError(t, err)
	assert.Equal(t, before.MSDX, tbl.MSDX)
	assert.Len(t, a.MSDTotal, 50)
	assert.Same(t, tbl, a.Table)
}

func TestAnalyse_EmptyTable(t *testing.T) {
	t.Parallel()

	_, err := Analyse(&trajectory.Table{})
	require.ErrorIs(t, err, fit.ErrEmptySeries)
}
