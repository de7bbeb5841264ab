package dataset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmgo/testutil"
)

func TestCompression_RoundTrip(t *testing.T) {
	rng := testutil.NewRNG(11)
	exp, _ := rng.Cohorts(testutil.CohortConfig{Experiment: 200, Control: 1, Features: 4})

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, exp, func(o *Options) { o.Compression = c }))

			switch c {
			case CompressionZstd:
				assert.Equal(t, zstdMagic, buf.Bytes()[:4])
			case CompressionLZ4:
				assert.Equal(t, lz4Magic, buf.Bytes()[:4])
			}

			// Explicit and detected compression both decode.
			explicit, err := Decode(bytes.NewReader(buf.Bytes()), func(o *Options) { o.Compression = c })
			require.NoError(t, err)
			assert.True(t, exp.Equal(explicit))

			detected, err := Decode(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.True(t, exp.Equal(detected))
		})
	}
}

func TestCompressionFromName(t *testing.T) {
	tests := []struct {
		name string
		want Compression
	}{
		{"experiment.csv", CompressionNone},
		{"experiment.csv.zst", CompressionZstd},
		{"experiment.csv.zstd", CompressionZstd},
		{"runs/result.csv.lz4", CompressionLZ4},
		{"noext", CompressionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompressionFromName(tt.name), tt.name)
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionAuto, false},
		{"auto", CompressionAuto, false},
		{"None", CompressionNone, false},
		{"zstd", CompressionZstd, false},
		{"zst", CompressionZstd, false},
		{"lz4", CompressionLZ4, false},
		{"gzip", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompression(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" && tt.in != "zst" && tt.in != "None" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}
