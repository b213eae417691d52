package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

func TestFeatureExtractorExtract(t *testing.T) {
	fe := NewFeatureExtractor(testRules(t))

	turn := Turn{
		Role:        RoleUser,
		Message:     "HELP me!! my account is blocked",
		PrevBotText: "could you provide more details",
	}
	state := ports.ConversationState{
		UserTurnIdx:     3,
		NoProgressCount: 2,
		BotRepeatCount:  1,
	}

	vec := fe.Extract(turn, state)

	assert.Equal(t, 3.0, vec.TurnIdx)
	assert.Equal(t, 2.0, vec.ExclamCount)
	assert.Equal(t, float64(len(turn.Message)), vec.MsgLen)
	assert.Equal(t, 1.0, vec.BotUnhelpful)
	assert.Equal(t, 0.0, vec.UserRequestsHuman)
	assert.Equal(t, 1.0, vec.RiskTerms)
	assert.Equal(t, 2.0, vec.NoProgressCount)
	assert.Equal(t, 1.0, vec.BotRepeatCount)

	// "HELPme" has 4 uppercase of 24 letters.
	assert.InDelta(t, 4.0/24.0, vec.UserCapsRatio, 1e-9)
}

func TestFeatureExtractorBotTurn(t *testing.T) {
	fe := NewFeatureExtractor(testRules(t))

	vec := fe.Extract(Turn{Role: RoleBot, Message: "check your spam folder"}, ports.ConversationState{})

	// Bot turns carry no user text: all user-derived slots are zero.
	assert.Equal(t, 0.0, vec.UserCapsRatio)
	assert.Equal(t, 0.0, vec.ExclamCount)
	assert.Equal(t, 0.0, vec.MsgLen)
	assert.Equal(t, 0.0, vec.UserRequestsHuman)
	assert.Equal(t, 0.0, vec.RiskTerms)
	assert.Equal(t, 1.0, vec.BotUnhelpful)
}

func TestFeatureVectorSliceOrder(t *testing.T) {
	v := FeatureVector{
		TurnIdx:           1,
		UserCapsRatio:     2,
		ExclamCount:       3,
		MsgLen:            4,
		BotUnhelpful:      5,
		UserRequestsHuman: 6,
		RiskTerms:         7,
		NoProgressCount:   8,
		BotRepeatCount:    9,
	}

	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, v.Slice())
	assert.Len(t, FeatureOrder, len(v.Slice()))
}

func TestCapsRatio(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"all caps", "HELP", 1.0},
		{"no caps", "help", 0.0},
		{"mixed", "Help", 0.25},
		{"no letters", "12345 !!!", 0.0},
		{"empty", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, capsRatio(tt.in), 1e-9)
		})
	}
}
