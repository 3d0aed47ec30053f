package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBotHarness(t *testing.T, bots int) *harness {
	t.Helper()
	h := newHarness(t, 1)
	for i := 0; i < bots; i++ {
		_, err := h.room.AddBot(h.host())
		require.NoError(t, err)
	}
	return h
}

func TestBotsTakeTheirRevealTurns(t *testing.T) {
	h := newBotHarness(t, 3)
	h.toReveal(t)
	require.Equal(t, h.host(), h.game().currentTurn())

	require.NoError(t, h.room.RevealAttribute(h.host(), nil))
	h.sched.Advance(30 * time.Second)

	// Round 2 waits on the host again.
	assert.Equal(t, 2, h.game().Round)
	for _, p := range h.room.players {
		assert.Equal(t, []int{0}, p.Revealed, p.Name)
	}
}

func TestBotsWaitForHumanTurn(t *testing.T) {
	h := newBotHarness(t, 3)
	h.toReveal(t)

	h.sched.Advance(h.room.cfg.BotActionDelayMax * 10)
	assert.Equal(t, PhaseRoundReveal, h.room.Phase())
	assert.Equal(t, 0, h.game().TurnIndex)
}

func TestBotsVote(t *testing.T) {
	h := newBotHarness(t, 3)
	h.toVote(t)

	target := h.room.players[1].ID
	require.NoError(t, h.room.CastVote(h.host(), target))

	// Each bot vote re-arms the others, so give them well under the vote timeout.
	h.sched.Advance(30 * time.Second)
	assert.NotEqual(t, PhaseRoundVote, h.room.Phase())
}

func TestBotsHoldStillWhilePaused(t *testing.T) {
	h := newBotHarness(t, 3)
	h.toVote(t)
	require.NoError(t, h.room.Pause(h.host()))

	h.sched.Advance(h.room.cfg.BotActionDelayMax * 10)
	for _, p := range h.room.players {
		assert.False(t, p.HasVoted, p.Name)
	}

	require.NoError(t, h.room.Unpause(h.host()))
	h.sched.Advance(30 * time.Second)
	for _, p := range h.room.players[1:] {
		assert.True(t, p.HasVoted, p.Name)
	}
}
