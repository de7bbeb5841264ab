package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmgo/blobstore"
	"github.com/hupe1980/psmgo/table"
	"github.com/hupe1980/psmgo/testutil"
)

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(3)
	exp, _ := rng.Cohorts(testutil.CohortConfig{Experiment: 40, Control: 1, Features: 2})

	stores := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
	for storeName, store := range stores {
		for _, name := range []string{"exp.csv", "runs/exp.csv.zst", "exp.csv.lz4"} {
			t.Run(storeName+"/"+name, func(t *testing.T) {
				require.NoError(t, Save(ctx, store, name, exp))

				raw, err := blobstore.ReadAll(ctx, store, name)
				require.NoError(t, err)
				switch CompressionFromName(name) {
				case CompressionZstd:
					assert.Equal(t, zstdMagic, raw[:4])
				case CompressionLZ4:
					assert.Equal(t, lz4Magic, raw[:4])
				default:
					assert.True(t, strings.HasPrefix(string(raw), "id,f0,f1,group\n"))
				}

				got, err := Load(ctx, store, name)
				require.NoError(t, err)
				assert.True(t, exp.Equal(got))
			})
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Load(ctx, store, "missing.csv")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "empty.csv", nil))
	_, err = Load(ctx, store, "empty.csv")
	assert.ErrorIs(t, err, ErrEmptyInput)

	require.NoError(t, store.Put(ctx, "bad.csv", []byte("a,b\n1\n")))
	_, err = Load(ctx, store, "bad.csv")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad.csv", pe.Name)
}

func TestLoadPair(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rng := testutil.NewRNG(5)
	exp, ctrl := rng.Cohorts(testutil.CohortConfig{Experiment: 10, Control: 30, Features: 2})

	require.NoError(t, Save(ctx, store, "experiment.csv", exp))
	require.NoError(t, Save(ctx, store, "control.csv.zst", ctrl))

	gotExp, gotCtrl, err := LoadPair(ctx, store, "experiment.csv", "control.csv.zst")
	require.NoError(t, err)
	assert.True(t, exp.Equal(gotExp))
	assert.True(t, ctrl.Equal(gotCtrl))

	_, _, err = LoadPair(ctx, store, "experiment.csv", "nope.csv")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestPublishCurrent(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, _, err := Current(ctx, store)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	first := table.MustFromRows([]string{"x"}, table.Row{table.Int(1)})
	second := table.MustFromRows([]string{"x"}, table.Row{table.Int(2)})

	require.NoError(t, Publish(ctx, store, "runs/1.csv", first))
	require.NoError(t, Publish(ctx, store, "runs/2.csv.zst", second))

	name, got, err := Current(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "runs/2.csv.zst", name)
	assert.True(t, second.Equal(got))

	names, err := store.List(ctx, "runs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/1.csv", "runs/2.csv.zst"}, names)
}
