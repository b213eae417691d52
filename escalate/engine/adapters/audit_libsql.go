package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	ports "github.com/triagelab/escalate/escalate/engine/ports"

	"github.com/google/uuid"
)

// LibSQLAuditLog implements the append-only decision audit log on libsql.
type LibSQLAuditLog struct {
	db *sql.DB
}

// NewLibSQLAuditLog creates a new libsql audit log.
func NewLibSQLAuditLog(db *sql.DB) *LibSQLAuditLog {
	return &LibSQLAuditLog{db: db}
}

// Append writes one decision record.
func (a *LibSQLAuditLog) Append(ctx context.Context, rec ports.DecisionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	firedJSON, err := json.Marshal(rec.FiredRules)
	if err != nil {
		return fmt.Errorf("failed to marshal fired rules: %w", err)
	}

	var score sql.NullFloat64
	if rec.Score != nil {
		score = sql.NullFloat64{Float64: *rec.Score, Valid: true}
	}

	query := `
		INSERT INTO decision_audit
			(id, conversation_id, turn_id, escalate, source, score, threshold,
			 fired_rules, reason, redacted_user, redacted_bot, model_version,
			 policy_version, state_degraded, latency_ms, user_turn_idx,
			 no_progress_count, bot_repeat_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = a.db.ExecContext(ctx, query,
		rec.ID,
		rec.ConversationID,
		rec.TurnID,
		rec.Escalate,
		rec.Source,
		score,
		rec.Threshold,
		string(firedJSON),
		rec.Reason,
		rec.RedactedUser,
		rec.RedactedBot,
		rec.ModelVersion,
		rec.PolicyVersion,
		rec.StateDegraded,
		rec.LatencyMS,
		rec.UserTurnIdx,
		rec.NoProgressCount,
		rec.BotRepeatCount,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append decision record: %w", err)
	}

	return nil
}

// Ensure LibSQLAuditLog implements the AuditLog port.
var _ ports.AuditLog = (*LibSQLAuditLog)(nil)
