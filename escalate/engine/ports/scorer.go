package engineports

import "context"

// Scorer converts a feature vector into a calibrated escalation probability.
// Implementations are deterministic for a fixed vector and loaded artifact,
// return values in [0,1], and report the artifact version for traceability.
// A scorer that cannot produce a score must return an error, never a
// default probability.
type Scorer interface {
	Score(ctx context.Context, features []float64) (float64, error)
	Version() string
}

// ScoreCache memoizes calibrated probabilities keyed by the serialized
// feature vector.
type ScoreCache interface {
	Get(ctx context.Context, key string) (score float64, ok bool)
	Set(ctx context.Context, key string, score float64, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
