package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	t.Run("unknown conversation yields zero state", func(t *testing.T) {
		st, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Equal(t, ports.ConversationState{}, st)
	})

	t.Run("put then get round-trips", func(t *testing.T) {
		in := ports.ConversationState{
			UserTurnIdx:     4,
			PrevBotText:     "please wait",
			NoProgressCount: 2,
			BotRepeatCount:  1,
			StickyKnown:     true,
			StickyEscalate:  true,
		}
		require.NoError(t, store.Put(ctx, "c1", in))

		st, err := store.Get(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, in.UserTurnIdx, st.UserTurnIdx)
		assert.Equal(t, in.PrevBotText, st.PrevBotText)
		assert.Equal(t, in.NoProgressCount, st.NoProgressCount)
		assert.Equal(t, in.BotRepeatCount, st.BotRepeatCount)
		assert.True(t, st.StickyKnown)
		assert.True(t, st.StickyEscalate)
		assert.False(t, st.UpdatedAt.IsZero())
	})

	t.Run("reset clears back to zero", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "c2", ports.ConversationState{UserTurnIdx: 7}))
		require.NoError(t, store.Reset(ctx, "c2"))

		st, err := store.Get(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, ports.ConversationState{}, st)
	})
}
