// Package scorer wraps the pre-trained escalation classifier. The artifact is
// loaded once at startup and is read-only afterwards, so concurrent scoring
// needs no locking.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	ports "github.com/triagelab/escalate/escalate/engine/ports"

	"gonum.org/v1/gonum/floats"
)

// Calibration is a Platt-style sigmoid recalibration applied to the raw
// margin: p = sigmoid(A*margin + B). Identity when absent.
type Calibration struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Artifact is the serialized model: a logistic regression over the canonical
// feature vector, exported from training with its calibration baked in.
type Artifact struct {
	Version      string       `json:"version"`
	FeatureOrder []string     `json:"feature_order"`
	Weights      []float64    `json:"weights"`
	Intercept    float64      `json:"intercept"`
	Calibration  *Calibration `json:"calibration,omitempty"`
}

// Logistic is a calibrated binary classifier satisfying the Scorer port.
type Logistic struct {
	art Artifact
}

// New validates an artifact against the engine's canonical feature order and
// returns a ready scorer.
func New(art Artifact, wantOrder []string) (*Logistic, error) {
	if art.Version == "" {
		return nil, fmt.Errorf("model artifact missing version")
	}
	if len(art.FeatureOrder) != len(wantOrder) {
		return nil, fmt.Errorf("model artifact declares %d features, engine expects %d",
			len(art.FeatureOrder), len(wantOrder))
	}
	for i, name := range wantOrder {
		if art.FeatureOrder[i] != name {
			return nil, fmt.Errorf("feature order mismatch at slot %d: artifact %q, engine %q",
				i, art.FeatureOrder[i], name)
		}
	}
	if len(art.Weights) != len(wantOrder) {
		return nil, fmt.Errorf("model artifact has %d weights for %d features",
			len(art.Weights), len(wantOrder))
	}
	return &Logistic{art: art}, nil
}

// Load reads an artifact JSON from disk and validates it.
func Load(path string, wantOrder []string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	return New(art, wantOrder)
}

// Score returns the calibrated escalation probability for a feature vector.
func (l *Logistic) Score(ctx context.Context, features []float64) (float64, error) {
	if len(features) != len(l.art.Weights) {
		return 0, fmt.Errorf("feature vector has %d slots, model expects %d",
			len(features), len(l.art.Weights))
	}

	margin := floats.Dot(l.art.Weights, features) + l.art.Intercept
	if cal := l.art.Calibration; cal != nil {
		margin = cal.A*margin + cal.B
	}

	p := sigmoid(margin)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced NaN for feature vector")
	}
	return clamp01(p), nil
}

// Version reports the loaded artifact version.
func (l *Logistic) Version() string {
	return l.art.Version
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Ensure Logistic implements the Scorer port.
var _ ports.Scorer = (*Logistic)(nil)
