package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

// LibSQLStateStore implements StateStore on an embedded libsql database.
// One row per conversation; Put is a single upsert so a caller-imposed
// timeout can never leave a partially written state. Rows older than the TTL
// read back as the zeroed state, mirroring key expiry in a cache-backed
// deployment.
type LibSQLStateStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewLibSQLStateStore creates a new libsql state store. A non-positive
// ttlSeconds disables expiry.
func NewLibSQLStateStore(db *sql.DB, ttlSeconds int) *LibSQLStateStore {
	return &LibSQLStateStore{
		db:  db,
		ttl: time.Duration(ttlSeconds) * time.Second,
	}
}

// Get returns the stored state, or a zeroed state for unknown or expired
// conversations.
func (s *LibSQLStateStore) Get(ctx context.Context, conversationID string) (ports.ConversationState, error) {
	query := `
		SELECT user_turn_idx, prev_bot_text, prev_from_bot, no_progress_count,
		       bot_repeat_count, sticky_known, sticky_escalate, updated_at
		FROM conversation_state
		WHERE conversation_id = ?
	`

	var st ports.ConversationState
	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(
		&st.UserTurnIdx,
		&st.PrevBotText,
		&st.PrevFromBot,
		&st.NoProgressCount,
		&st.BotRepeatCount,
		&st.StickyKnown,
		&st.StickyEscalate,
		&st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ConversationState{}, nil
	}
	if err != nil {
		return ports.ConversationState{}, fmt.Errorf("failed to load conversation state: %w", err)
	}

	if s.ttl > 0 && time.Since(st.UpdatedAt) > s.ttl {
		return ports.ConversationState{}, nil
	}

	return st, nil
}

// Put overwrites the conversation's state.
func (s *LibSQLStateStore) Put(ctx context.Context, conversationID string, state ports.ConversationState) error {
	query := `
		INSERT INTO conversation_state
			(conversation_id, user_turn_idx, prev_bot_text, prev_from_bot,
			 no_progress_count, bot_repeat_count, sticky_known, sticky_escalate,
			 updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			user_turn_idx = excluded.user_turn_idx,
			prev_bot_text = excluded.prev_bot_text,
			prev_from_bot = excluded.prev_from_bot,
			no_progress_count = excluded.no_progress_count,
			bot_repeat_count = excluded.bot_repeat_count,
			sticky_known = excluded.sticky_known,
			sticky_escalate = excluded.sticky_escalate,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		conversationID,
		state.UserTurnIdx,
		state.PrevBotText,
		state.PrevFromBot,
		state.NoProgressCount,
		state.BotRepeatCount,
		state.StickyKnown,
		state.StickyEscalate,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}

	return nil
}

// Reset clears the conversation back to the zeroed state.
func (s *LibSQLStateStore) Reset(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_state WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to reset conversation state: %w", err)
	}
	return nil
}

// Ensure LibSQLStateStore implements the StateStore port.
var _ ports.StateStore = (*LibSQLStateStore)(nil)
