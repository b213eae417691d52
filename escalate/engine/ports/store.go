package engineports

import (
	"context"
	"time"
)

// ConversationState holds the rolling per-conversation metrics the arbiter
// folds into every decision. One logical record per conversation; counters
// only ever move through Put or Reset, never spontaneously.
type ConversationState struct {
	UserTurnIdx     int       // completed user turns
	PrevBotText     string    // normalized last-seen bot message, for repeat detection
	PrevFromBot     bool      // PrevBotText came from a bot-role turn, not a user turn's echo
	NoProgressCount float64   // consecutive unhelpful bot turns, decayed
	BotRepeatCount  float64   // consecutive (near-)duplicate bot responses
	StickyKnown     bool      // a firm verdict exists for the hysteresis band
	StickyEscalate  bool      // the firm verdict, valid only when StickyKnown
	UpdatedAt       time.Time // server-side timestamp of the last write
}

// StateStore persists conversation state. Get returns a zeroed state for
// unknown conversations; Put is an idempotent overwrite; Reset clears back to
// the zeroed state. Implementations must support concurrent calls for
// different conversations without contention. Serialization of the
// read-modify-write cycle for a single conversation is the caller's job.
type StateStore interface {
	Get(ctx context.Context, conversationID string) (ConversationState, error)
	Put(ctx context.Context, conversationID string, state ConversationState) error
	Reset(ctx context.Context, conversationID string) error
}
