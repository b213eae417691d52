package engine

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/triagelab/escalate/escalate/config"
	"github.com/triagelab/escalate/escalate/engine/adapters"
	ports "github.com/triagelab/escalate/escalate/engine/ports"
	"github.com/triagelab/escalate/escalate/engine/scorer"
)

// Factory creates and wires engine components from configuration.
type Factory struct {
	cfg    *config.Config
	db     *sql.DB // optional, required only for the libsql state/audit backends
	logger zerolog.Logger
}

// NewFactory creates a new engine factory.
func NewFactory(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
}

// CreateArbiter creates a fully wired PolicyArbiter from config. The model
// artifact is loaded and validated here, so a mismatched feature schema fails
// at startup rather than on the first scored turn.
func (f *Factory) CreateArbiter() (*PolicyArbiter, error) {
	rules, err := NewRuleEngine(f.cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule engine: %w", err)
	}

	sc, err := scorer.Load(f.cfg.Model.ArtifactPath, FeatureOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to load model artifact: %w", err)
	}

	store, err := f.createStore()
	if err != nil {
		return nil, err
	}

	return NewPolicyArbiter(
		f.cfg,
		rules,
		sc,
		store,
		f.createCache(),
		f.createTracer(),
		f.createAudit(),
		f.logger,
	), nil
}

func (f *Factory) createStore() (ports.StateStore, error) {
	switch f.cfg.State.Backend {
	case "", "memory":
		return adapters.NewMemoryStateStore(), nil
	case "libsql":
		if f.db == nil {
			return nil, fmt.Errorf("state backend %q requires a database connection", f.cfg.State.Backend)
		}
		return adapters.NewLibSQLStateStore(f.db, f.cfg.State.TTLSeconds), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", f.cfg.State.Backend)
	}
}

func (f *Factory) createCache() ports.ScoreCache {
	if !f.cfg.Engine.CacheEnabled {
		return nil
	}
	return adapters.NewLRUCache(f.cfg.Engine.CacheCapacity)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Engine.EnableTracing {
		return adapters.NewNoopTracer()
	}
	return adapters.NewZerologTracer(f.logger)
}

func (f *Factory) createAudit() ports.AuditLog {
	if !f.cfg.Audit.Enabled || f.db == nil {
		return adapters.NewNoopAuditLog()
	}
	return adapters.NewLibSQLAuditLog(f.db)
}
