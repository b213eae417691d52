package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnNormalize(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		turn, err := Turn{
			ConversationID: "c1",
			Role:           RoleUser,
			Message:        "hello",
		}.Normalize()
		require.NoError(t, err)

		assert.NotEmpty(t, turn.TurnID)
		assert.False(t, turn.Timestamp.IsZero())
		assert.Equal(t, "en", turn.Lang)
	})

	t.Run("keeps provided values", func(t *testing.T) {
		ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		turn, err := Turn{
			ConversationID: "c1",
			TurnID:         "t42",
			Role:           RoleBot,
			Message:        "hi",
			Timestamp:      ts,
			Lang:           "de",
		}.Normalize()
		require.NoError(t, err)

		assert.Equal(t, "t42", turn.TurnID)
		assert.Equal(t, ts, turn.Timestamp)
		assert.Equal(t, "de", turn.Lang)
	})

	t.Run("rejects invalid turns", func(t *testing.T) {
		cases := []Turn{
			{Role: RoleUser, Message: "no conversation"},
			{ConversationID: "c1", Role: RoleUser},
			{ConversationID: "c1", Role: "system", Message: "bad role"},
		}
		for _, turn := range cases {
			_, err := turn.Normalize()
			assert.ErrorIs(t, err, ErrInvalidTurn)
		}
	})
}

func TestTurnTextAccessors(t *testing.T) {
	user := Turn{Role: RoleUser, Message: "question", PrevBotText: "earlier answer"}
	assert.Equal(t, "question", user.UserText())
	assert.Equal(t, "earlier answer", user.BotText())

	bot := Turn{Role: RoleBot, Message: "answer", PrevBotText: "stale"}
	assert.Equal(t, "", bot.UserText())
	assert.Equal(t, "answer", bot.BotText())
}
