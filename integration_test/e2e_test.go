package psmgo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmgo"
	"github.com/hupe1980/psmgo/blobstore"
	"github.com/hupe1980/psmgo/dataset"
	"github.com/hupe1980/psmgo/match"
	"github.com/hupe1980/psmgo/server"
	"github.com/hupe1980/psmgo/table"
	"github.com/hupe1980/psmgo/testutil"
)

func cohorts(t *testing.T) (*table.Table, *table.Table, []string) {
	t.Helper()
	rng := testutil.NewRNG(2024)
	exp, ctrl := rng.Cohorts(testutil.CohortConfig{
		Experiment: 60,
		Control:    400,
		Features:   3,
		Shift:      0.4,
	})
	return exp, ctrl, []string{testutil.FeatureName(0), testutil.FeatureName(1), testutil.FeatureName(2)}
}

// TestStoreRoundTrip saves compressed cohorts, loads them back, matches and
// publishes the result.
func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	exp, ctrl, features := cohorts(t)

	for name, store := range map[string]blobstore.BlobStore{
		"Memory": blobstore.NewMemoryStore(),
		"Local":  blobstore.NewLocalStore(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, dataset.Save(ctx, store, "exp.csv.zst", exp))
			require.NoError(t, dataset.Save(ctx, store, "ctrl.csv.lz4", ctrl))

			gotExp, gotCtrl, err := dataset.LoadPair(ctx, store, "exp.csv.zst", "ctrl.csv.lz4")
			require.NoError(t, err)
			require.True(t, gotExp.Equal(exp))
			require.True(t, gotCtrl.Equal(ctrl))

			want, err := psmgo.Run(ctx, exp, ctrl, psmgo.WithFeatureColumns(features...))
			require.NoError(t, err)
			got, err := psmgo.Run(ctx, gotExp, gotCtrl, psmgo.WithFeatureColumns(features...))
			require.NoError(t, err)
			assert.Equal(t, want.Matches, got.Matches)

			require.NoError(t, dataset.Publish(ctx, store, "result.csv", got.Table))
			name, current, err := dataset.Current(ctx, store)
			require.NoError(t, err)
			assert.Equal(t, "result.csv", name)
			assert.True(t, current.Equal(got.Table))
		})
	}
}

// TestMatchesAreNearest checks every pair of a full run against a brute
// force scan of the control scores.
func TestMatchesAreNearest(t *testing.T) {
	exp, ctrl, features := cohorts(t)

	res, err := psmgo.Run(context.Background(), exp, ctrl, psmgo.WithFeatureColumns(features...))
	require.NoError(t, err)
	require.Len(t, res.Matches, exp.Len())

	for i, p := range res.Matches {
		want := testutil.BruteForceNearest(res.ControlScores, res.ExperimentScores[i])
		assert.Equal(t, i, p.Query)
		assert.Equal(t, want.Index, p.Control, "experiment row %d", i)
		assert.InDelta(t, want.Distance, p.Distance, 1e-12)
	}

	ranked, err := psmgo.Run(context.Background(), exp, ctrl,
		psmgo.WithFeatureColumns(features...),
		psmgo.WithNResults(10),
	)
	require.NoError(t, err)
	assert.Equal(t, match.Rank(res.Matches, 10), ranked.Matches)
}

// TestServerAgreesWithLibrary posts the cohorts to a live server and
// compares the response with a direct Run.
func TestServerAgreesWithLibrary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exp, ctrl, features := cohorts(t)

	srv, err := server.New(func(o *server.Options) { o.MaxRows = 1_000 })
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, tbl := range map[string]*table.Table{"experiment": exp, "control": ctrl} {
		fw, err := mw.CreateFormFile(name, name+".csv")
		require.NoError(t, err)
		require.NoError(t, dataset.Encode(fw, tbl))
	}
	cols, err := json.Marshal(features)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("columns", string(cols)))
	require.NoError(t, mw.WriteField("n_results", "15"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/psm", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	want, err := psmgo.Run(context.Background(), exp, ctrl,
		psmgo.WithFeatureColumns(features...),
		psmgo.WithNResults(15),
	)
	require.NoError(t, err)

	wantJSON, err := json.Marshal(dataset.ToRecords(want.Table, -1))
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(raw))
}
