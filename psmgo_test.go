package psmgo

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmgo/propensity"
	"github.com/hupe1980/psmgo/table"
	"github.com/hupe1980/psmgo/testutil"
)

func xTables() (*table.Table, *table.Table) {
	exp := table.MustFromRows([]string{"x"},
		table.Row{table.Int(1)},
		table.Row{table.Int(5)},
	)
	ctrl := table.MustFromRows([]string{"x"},
		table.Row{table.Int(0)},
		table.Row{table.Int(2)},
		table.Row{table.Int(6)},
	)
	return exp, ctrl
}

func column(t *testing.T, tbl *table.Table, name string) []table.Value {
	t.Helper()
	j, ok := tbl.ColumnIndex(name)
	require.True(t, ok)
	out := make([]table.Value, tbl.Len())
	for i := range out {
		out[i] = tbl.At(i, j)
	}
	return out
}

func TestRun_SingleCovariate(t *testing.T) {
	exp, ctrl := xTables()

	res, err := Run(context.Background(), exp, ctrl)
	require.NoError(t, err)

	// Scores: exp 0.3767, 0.4283; ctrl 0.3641, 0.3894, 0.4415. x=1 sits
	// 0.0125 from x=0 and 0.0127 from x=2, so it pairs with x=0, not x=2.
	assert.Less(t,
		math.Abs(res.ExperimentScores[0]-res.ControlScores[0]),
		math.Abs(res.ExperimentScores[0]-res.ControlScores[1]))
	assert.Equal(t, []table.Value{table.Int(0), table.Int(6)}, column(t, res.Table, "x"))
	assert.Equal(t, []string{"x"}, res.Features)
	assert.Equal(t, uint64(2), res.DistinctControls)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, 0, res.Matches[0].Control)
	assert.Equal(t, 2, res.Matches[1].Control)
	assert.Len(t, res.ExperimentScores, 2)
	assert.Len(t, res.ControlScores, 3)
}

func TestRun_NResults(t *testing.T) {
	exp, ctrl := xTables()

	tests := []struct {
		name string
		n    int
		want []table.Value
	}{
		{"zero", 0, []table.Value{}},
		{"negative", -1, []table.Value{}},
		{"closest only", 1, []table.Value{table.Int(0)}},
		{"all", 2, []table.Value{table.Int(0), table.Int(6)}},
		{"more than available", 10, []table.Value{table.Int(0), table.Int(6)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), exp, ctrl, WithNResults(tt.n))
			require.NoError(t, err)
			assert.Equal(t, []string{"x"}, res.Table.Columns())
			assert.Equal(t, tt.want, column(t, res.Table, "x"))
			assert.Len(t, res.Matches, len(tt.want))
		})
	}
}

func TestRun_ColumnFidelity(t *testing.T) {
	cols := []string{"name", "x", "note"}
	exp := table.MustFromRows(cols,
		table.Row{table.String("e0"), table.Int(1), table.Null()},
		table.Row{table.String("e1"), table.Int(5), table.String("n")},
	)
	ctrl := table.MustFromRows(cols,
		table.Row{table.String("c0"), table.Int(0), table.String("a")},
		table.Row{table.String("c1"), table.Int(2), table.Null()},
		table.Row{table.String("c2"), table.Int(6), table.String("b")},
	)

	res, err := Run(context.Background(), exp, ctrl, WithFeatureColumns("x"))
	require.NoError(t, err)

	assert.Equal(t, cols, res.Table.Columns())
	for i, p := range res.Matches {
		want, err := ctrl.Row(p.Control)
		require.NoError(t, err)
		got, err := res.Table.Row(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.NotContains(t, res.Table.Columns(), "treatment")
	assert.NotContains(t, res.Table.Columns(), "distance")
}

func TestRun_WithReplacement(t *testing.T) {
	exp := table.MustFromRows([]string{"x"},
		table.Row{table.Float(1.0)},
		table.Row{table.Float(1.1)},
		table.Row{table.Float(1.2)},
	)
	ctrl := table.MustFromRows([]string{"x"},
		table.Row{table.Float(1.0)},
		table.Row{table.Float(100)},
	)

	res, err := Run(context.Background(), exp, ctrl)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Table.Len())
	assert.Equal(t, uint64(1), res.DistinctControls)
	for _, p := range res.Matches {
		assert.Equal(t, 0, p.Control)
	}
}

func TestRun_DoesNotModifyInputs(t *testing.T) {
	exp, ctrl := xTables()
	expBefore, ctrlBefore := exp.Clone(), ctrl.Clone()

	_, err := Run(context.Background(), exp, ctrl, WithNResults(1))
	require.NoError(t, err)

	assert.True(t, exp.Equal(expBefore))
	assert.True(t, ctrl.Equal(ctrlBefore))
}

func TestRun_Deterministic(t *testing.T) {
	rng := testutil.NewRNG(4711)
	exp, ctrl := rng.Cohorts(testutil.CohortConfig{Experiment: 40, Control: 150, Features: 3, Shift: 0.7})
	features := []string{testutil.FeatureName(0), testutil.FeatureName(1), testutil.FeatureName(2)}

	a, err := Run(context.Background(), exp, ctrl, WithFeatureColumns(features...))
	require.NoError(t, err)
	b, err := Run(context.Background(), exp, ctrl, WithFeatureColumns(features...))
	require.NoError(t, err)

	assert.Equal(t, a.Matches, b.Matches)
	assert.True(t, a.Table.Equal(b.Table))
	assert.Equal(t, a.ExperimentScores, b.ExperimentScores)
}

func TestRun_MatchesAreNearest(t *testing.T) {
	rng := testutil.NewRNG(99)
	exp, ctrl := rng.Cohorts(testutil.CohortConfig{Experiment: 30, Control: 120, Features: 2, Shift: 0.5})

	res, err := Run(context.Background(), exp, ctrl,
		WithFeatureColumns(testutil.FeatureName(0), testutil.FeatureName(1)))
	require.NoError(t, err)
	require.Equal(t, exp.Len(), res.Table.Len())

	for i, p := range res.Matches {
		assert.Equal(t, i, p.Query)
		want := testutil.BruteForceNearest(res.ControlScores, res.ExperimentScores[i])
		assert.Equal(t, want.Index, p.Control)
		assert.Equal(t, want.Distance, p.Distance)
	}
}

func TestRun_RankedTruncation(t *testing.T) {
	rng := testutil.NewRNG(5)
	exp, ctrl := rng.Cohorts(testutil.CohortConfig{Experiment: 25, Control: 60, Features: 1, Shift: 1})
	opt := WithFeatureColumns(testutil.FeatureName(0))

	all, err := Run(context.Background(), exp, ctrl, opt)
	require.NoError(t, err)
	top, err := Run(context.Background(), exp, ctrl, opt, WithNResults(7))
	require.NoError(t, err)

	require.Equal(t, 7, top.Table.Len())
	neighbors := make([]testutil.Neighbor, len(all.Matches))
	for i, p := range all.Matches {
		neighbors[i] = testutil.Neighbor{Index: p.Query, Distance: p.Distance}
	}
	want := testutil.BruteForceRank(neighbors, 7)
	for i := range want {
		assert.Equal(t, want[i].Index, top.Matches[i].Query)
	}
}

func TestRun_Errors(t *testing.T) {
	exp, ctrl := xTables()
	empty := table.New("x")

	badCfg := propensity.DefaultConfig()
	badCfg.MaxIter = 0

	textExp := table.MustFromRows([]string{"x", "label"},
		table.Row{table.Int(1), table.String("a")},
	)
	textCtrl := table.MustFromRows([]string{"x", "label"},
		table.Row{table.Int(0), table.String("b")},
	)

	tests := []struct {
		name    string
		exp     *table.Table
		ctrl    *table.Table
		opts    []Option
		wantErr error
	}{
		{"schema mismatch", exp, table.New("y"), nil, ErrSchemaMismatch},
		{"column order mismatch", table.New("a", "b"), table.New("b", "a"), nil, ErrSchemaMismatch},
		{"unknown column", exp, ctrl, []Option{WithFeatureColumns("nonexistent")}, ErrUnknownColumn},
		{"empty control", exp, empty, nil, ErrInsufficientData},
		{"empty experiment", empty, ctrl, nil, ErrInsufficientData},
		{"empty selection", exp, ctrl, []Option{WithFeatureColumns()}, ErrInsufficientData},
		{"nil table", nil, ctrl, nil, ErrInsufficientData},
		{"text feature", textExp, textCtrl, nil, ErrInvalidFeatureType},
		{"invalid config", exp, ctrl, []Option{WithEstimatorConfig(badCfg)}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), tt.exp, tt.ctrl, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestRun_UnknownColumnError(t *testing.T) {
	exp, ctrl := xTables()

	_, err := Run(context.Background(), exp, ctrl, WithFeatureColumns("x", "nonexistent"))

	var uc *UnknownColumnError
	require.True(t, errors.As(err, &uc))
	assert.Equal(t, "nonexistent", uc.Column)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestRun_InvalidFeatureTypeError(t *testing.T) {
	exp := table.MustFromRows([]string{"x", "label"},
		table.Row{table.Int(1), table.Int(3)},
	)
	ctrl := table.MustFromRows([]string{"x", "label"},
		table.Row{table.Int(0), table.Int(4)},
		table.Row{table.Int(2), table.String("oops")},
	)

	_, err := Run(context.Background(), exp, ctrl)

	var fe *InvalidFeatureTypeError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "label", fe.Column)
	assert.Equal(t, "control", fe.Group)
	assert.Equal(t, 1, fe.Row)
	require.ErrorIs(t, err, propensity.ErrInvalidFeatureType)
}

func TestRun_ContextCancelled(t *testing.T) {
	exp, ctrl := xTables()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, exp, ctrl)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsClientError(err))
}

func TestRun_Metrics(t *testing.T) {
	exp, ctrl := xTables()
	metrics := &BasicMetricsCollector{}

	_, err := Run(context.Background(), exp, ctrl, WithMetricsCollector(metrics), WithNResults(1))
	require.NoError(t, err)
	_, err = Run(context.Background(), exp, table.New("x"), WithMetricsCollector(metrics))
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.FitCount)
	assert.Equal(t, int64(1), stats.FitErrors)
	assert.Equal(t, int64(5), stats.FitRows)
	assert.Equal(t, int64(1), stats.MatchCount)
	assert.Equal(t, int64(0), stats.MatchErrors)
	assert.Equal(t, int64(2), stats.MatchedRows)
	assert.Equal(t, int64(1), stats.ReturnedRows)
}

func TestRun_Logging(t *testing.T) {
	exp, ctrl := xTables()
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(context.Background(), exp, ctrl, WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "features resolved")
	assert.Contains(t, out, "propensity fit completed")
	assert.Contains(t, out, "matching completed")
	assert.Contains(t, out, `"distinct_controls":2`)
}

func TestWithLogLevel(t *testing.T) {
	o := applyOptions([]Option{WithLogLevel(slog.LevelDebug)})
	assert.True(t, o.logger.Enabled(context.Background(), slog.LevelDebug))

	o = applyOptions([]Option{WithLogLevel(slog.LevelWarn)})
	assert.False(t, o.logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestRun_NilOptions(t *testing.T) {
	exp, ctrl := xTables()

	res, err := Run(context.Background(), exp, ctrl, nil, WithLogger(nil), WithMetricsCollector(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Table.Len())
}
