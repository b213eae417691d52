package engineports

import (
	"context"
	"time"
)

// DecisionRecord is the append-only audit row written for every decision.
// User and bot texts are stored redacted; the raw texts never reach the log.
type DecisionRecord struct {
	ID              string
	ConversationID  string
	TurnID          string
	Escalate        bool
	Source          string
	Score           *float64
	Threshold       float64
	FiredRules      []string
	Reason          string
	RedactedUser    string
	RedactedBot     string
	ModelVersion    string
	PolicyVersion   string
	StateDegraded   bool
	LatencyMS       int64
	UserTurnIdx     int
	NoProgressCount float64
	BotRepeatCount  float64
	CreatedAt       time.Time
}

// AuditLog records decisions for later review. Writes are best-effort from
// the arbiter's point of view: a failing audit backend must not fail a turn.
type AuditLog interface {
	Append(ctx context.Context, rec DecisionRecord) error
}
