package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Source tags which signal decided a turn. The set is closed: every decision
// comes from exactly one of these three.
type Source string

const (
	SourceRules Source = "rules"
	SourceModel Source = "model"
	SourceGuard Source = "guard"
)

// Turn is one immutable message exchange handed to the arbiter.
type Turn struct {
	ConversationID string    `json:"conversation_id"`
	TurnID         string    `json:"turn_id,omitempty"`
	Role           string    `json:"role"`
	Message        string    `json:"message"`
	PrevBotText    string    `json:"prev_bot_text,omitempty"`
	Timestamp      time.Time `json:"ts,omitempty"`
	Lang           string    `json:"lang,omitempty"`
}

// Normalize validates required fields and fills documented defaults on a
// copy. It is the gate in front of the decision state machine: a turn that
// fails here never touches state.
func (t Turn) Normalize() (Turn, error) {
	if t.ConversationID == "" {
		return t, fmt.Errorf("%w: missing conversation id", ErrInvalidTurn)
	}
	if t.Message == "" {
		return t, fmt.Errorf("%w: empty message", ErrInvalidTurn)
	}
	if t.Role != RoleUser && t.Role != RoleBot {
		return t, fmt.Errorf("%w: role %q", ErrInvalidTurn, t.Role)
	}
	if t.TurnID == "" {
		t.TurnID = uuid.New().String()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	if t.Lang == "" {
		t.Lang = "en"
	}
	return t, nil
}

// UserText returns the text the rules and the model look at: the message for
// user turns, empty for bot turns.
func (t Turn) UserText() string {
	if t.Role == RoleUser {
		return t.Message
	}
	return ""
}

// BotText returns the most recent bot message visible on this turn.
func (t Turn) BotText() string {
	if t.Role == RoleBot {
		return t.Message
	}
	return t.PrevBotText
}

// StateSnapshot is the post-update view of the rolling metrics, included in
// every decision for observability.
type StateSnapshot struct {
	UserTurnIdx     int     `json:"user_turn_idx"`
	NoProgressCount float64 `json:"no_progress_count"`
	BotRepeatCount  float64 `json:"bot_repeat_count"`
}

// Decision is the arbiter's verdict for one turn. Immutable once constructed.
type Decision struct {
	ConversationID string        `json:"conversation_id"`
	TurnID         string        `json:"turn_id"`
	Escalate       bool          `json:"escalate"`
	Source         Source        `json:"where"`
	Score          *float64      `json:"score"` // null when rules or guard short-circuited
	Threshold      float64       `json:"threshold"`
	FiredRules     []string      `json:"fired_rules"`
	Reason         string        `json:"reason"`
	StateDegraded  bool          `json:"state_degraded,omitempty"`
	ModelVersion   string        `json:"model_version"`
	PolicyVersion  string        `json:"policy_version"`
	LatencyMS      int64         `json:"latency_ms"`
	State          StateSnapshot `json:"state"`
}
