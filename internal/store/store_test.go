package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/diffusion.report/internal/diffusion"
	"github.com/banshee-data/diffusion.report/internal/testutil"
	"github.com/banshee-data/diffusion.report/internal/timeutil"
	"github.com/banshee-data/diffusion.report/internal/trajectory"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T, clock timeutil.Clock) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testAnalysis(t *testing.T) *diffusion.Analysis {
	t.Helper()
	ts := testutil.Seq(100, 0, 1)
	tab := &trajectory.Table{
		Time:  ts,
		MSDX:  testutil.Ramp(ts, 2, 0),
		MSDY:  testutil.Ramp(ts, 4, 1),
		MeanX: testutil.Ramp(ts, 0.5, 10),
		MeanY: testutil.Ramp(ts, -0.25, 0),
	}
	a, err := diffusion.Analyse(tab)
	require.NoError(t, err)
	return a
}

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, nil)

	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestNewRun(t *testing.T) {
	t.Parallel()
	a := testAnalysis(t)
	r := NewRun("data.csv", a)

	assert.Equal(t, "data.csv", r.InputPath)
	assert.Equal(t, 100, r.Rows)
	assert.Equal(t, a.Constants, r.Constants)
	require.Len(t, r.Fits, 5)

	series := make([]string, len(r.Fits))
	for i, f := range r.Fits {
		series[i] = f.Series
	}
	assert.Equal(t, []string{SeriesMSDX, SeriesMSDY, SeriesMSDTotal, SeriesMeanX, SeriesMeanY}, series)
	assert.Equal(t, diffusion.MSDWindow, r.Fits[0].Window)
	assert.Equal(t, diffusion.DriftWindow, r.Fits[4].Window)
}

func TestRecordRunRoundTrip(t *testing.T) {
	t.Parallel()
	clock := timeutil.NewMockClock(epoch)
	s := openTestStore(t, clock)
	ctx := context.Background()

	in := NewRun("data.csv", testAnalysis(t))
	got, err := s.RecordRun(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, epoch, got.CreatedAt)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	if diff := cmp.Diff(got, runs[0], cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("stored run mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1.0, runs[0].Constants.Dx, 1e-9)
	assert.InDelta(t, 0.5, runs[0].Constants.Vx, 1e-9)
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	t.Parallel()
	clock := timeutil.NewMockClock(epoch)
	s := openTestStore(t, clock)
	ctx := context.Background()
	a := testAnalysis(t)

	var ids []string
	for _, path := range []string{"a.csv", "b.csv", "c.csv"} {
		r, err := s.RecordRun(ctx, NewRun(path, a))
		require.NoError(t, err)
		ids = append(ids, r.ID)
		clock.Advance(time.Minute)
	}

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, "c.csv", runs[0].InputPath)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, epoch.Add(2*time.Minute), runs[0].CreatedAt)

	all, err := s.Runs(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordRunAssignsDistinctIDs(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, timeutil.NewMockClock(epoch))
	ctx := context.Background()
	r := NewRun("data.csv", testAnalysis(t))

	first, err := s.RecordRun(ctx, r)
	require.NoError(t, err)
	second, err := s.RecordRun(ctx, r)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRecordRunDuplicateSeriesRollsBack(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, timeutil.NewMockClock(epoch))
	ctx := context.Background()

	r := NewRun("data.csv", testAnalysis(t))
	r.Fits = append(r.Fits, r.Fits[0])

	_, err := s.RecordRun(ctx, r)
	require.Error(t, err)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunsEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, nil)

	runs, err := s.Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
