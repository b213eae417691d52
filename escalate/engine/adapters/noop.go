package adapters

import (
	"context"

	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

// NoopTracer discards all spans and events. Used when tracing is disabled.
type NoopTracer struct{}

// NewNoopTracer creates a tracer that does nothing.
func NewNoopTracer() *NoopTracer { return &NoopTracer{} }

func (t *NoopTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(error) {}
}

func (t *NoopTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// NoopAuditLog discards all records. Used when the audit log is disabled.
type NoopAuditLog struct{}

// NewNoopAuditLog creates an audit log that does nothing.
func NewNoopAuditLog() *NoopAuditLog { return &NoopAuditLog{} }

func (a *NoopAuditLog) Append(ctx context.Context, rec ports.DecisionRecord) error { return nil }

var (
	_ ports.Tracer   = (*NoopTracer)(nil)
	_ ports.AuditLog = (*NoopAuditLog)(nil)
)
