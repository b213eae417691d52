package scorer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrder = []string{"f1", "f2", "f3"}

func validArtifact() Artifact {
	return Artifact{
		Version:      "lr@test",
		FeatureOrder: []string{"f1", "f2", "f3"},
		Weights:      []float64{1.0, -0.5, 2.0},
		Intercept:    -1.0,
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Artifact)
		errMsg string
	}{
		{"missing version", func(a *Artifact) { a.Version = "" }, "missing version"},
		{"wrong feature count", func(a *Artifact) { a.FeatureOrder = []string{"f1"} }, "declares 1 features"},
		{"reordered features", func(a *Artifact) { a.FeatureOrder = []string{"f2", "f1", "f3"} }, "feature order mismatch"},
		{"weight count mismatch", func(a *Artifact) { a.Weights = []float64{1.0} }, "1 weights"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := validArtifact()
			tt.mutate(&art)
			_, err := New(art, testOrder)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := New(validArtifact(), testOrder)
	assert.NoError(t, err)
}

func TestScore(t *testing.T) {
	l, err := New(validArtifact(), testOrder)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("zero vector hits the intercept", func(t *testing.T) {
		p, err := l.Score(ctx, []float64{0, 0, 0})
		require.NoError(t, err)
		// sigmoid(-1.0)
		assert.InDelta(t, 0.2689414, p, 1e-6)
	})

	t.Run("monotone in a positive weight", func(t *testing.T) {
		low, err := l.Score(ctx, []float64{0, 0, 0.1})
		require.NoError(t, err)
		high, err := l.Score(ctx, []float64{0, 0, 2.0})
		require.NoError(t, err)
		assert.Greater(t, high, low)
	})

	t.Run("always within unit interval", func(t *testing.T) {
		for _, vec := range [][]float64{
			{1000, 0, 1000},
			{-1000, 1000, -1000},
		} {
			p, err := l.Score(ctx, vec)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	})

	t.Run("rejects wrong vector length", func(t *testing.T) {
		_, err := l.Score(ctx, []float64{1, 2})
		assert.Error(t, err)
	})
}

func TestScoreCalibration(t *testing.T) {
	art := validArtifact()
	art.Calibration = &Calibration{A: 2.0, B: 0.5}
	l, err := New(art, testOrder)
	require.NoError(t, err)

	p, err := l.Score(context.Background(), []float64{0, 0, 0})
	require.NoError(t, err)
	// sigmoid(2.0*(-1.0) + 0.5)
	assert.InDelta(t, 0.1824255, p, 1e-6)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("round-trips a written artifact", func(t *testing.T) {
		path := filepath.Join(dir, "model.json")
		data, err := json.Marshal(validArtifact())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		l, err := Load(path, testOrder)
		require.NoError(t, err)
		assert.Equal(t, "lr@test", l.Version())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"), testOrder)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := Load(path, testOrder)
		assert.Error(t, err)
	})
}
