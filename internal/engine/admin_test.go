package engine

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrValue(p *Player, t AttributeType) string {
	i := p.Character.indexOf(t)
	if i < 0 {
		return ""
	}
	return p.Character.Attributes[i].Value
}

func TestAdminRequiresHostAndGame(t *testing.T) {
	h := newHarness(t, 4)
	assert.ErrorIs(t, h.room.ShuffleAttribute(h.host(), AttrHealth), ErrGameNotStarted)
	h.start(t)
	assert.ErrorIs(t, h.room.ShuffleAttribute(h.ids[1], AttrHealth), ErrNotHost)
}

func TestSwapAttribute(t *testing.T) {
	h := newHarness(t, 4)
	h.start(t)
	a, b := h.room.players[1], h.room.players[2]
	wantA, wantB := attrValue(b, AttrHealth), attrValue(a, AttrHealth)

	require.NoError(t, h.room.SwapAttribute(h.host(), a.ID, b.ID, AttrHealth))
	assert.Equal(t, wantA, attrValue(a, AttrHealth))
	assert.Equal(t, wantB, attrValue(b, AttrHealth))
	assert.Equal(t, 2, h.conns[a.ID].count(EvtCharacter))
	assert.Equal(t, 1, h.conns[h.ids[3]].count(EvtCharacter))

	assert.ErrorIs(t, h.room.SwapAttribute(h.host(), a.ID, a.ID, AttrHealth), ErrInvalidTarget)
	assert.ErrorIs(t, h.room.SwapAttribute(h.host(), a.ID, "ghost", AttrHealth), ErrPlayerNotFound)

	a.ActionCardRevealed = true
	cardA, cardB := a.Character.ActionCard, b.Character.ActionCard
	require.NoError(t, h.room.SwapAttribute(h.host(), a.ID, b.ID, AttrAction))
	assert.Equal(t, cardB, a.Character.ActionCard)
	assert.Equal(t, cardA, b.Character.ActionCard)
	assert.False(t, a.ActionCardRevealed)
}

func TestShuffleAttributeKeepsTheSameCards(t *testing.T) {
	h := newHarness(t, 6)
	h.start(t)

	var before []string
	for _, p := range h.room.players {
		before = append(before, attrValue(p, AttrHobby))
	}
	require.NoError(t, h.room.ShuffleAttribute(h.host(), AttrHobby))
	var after []string
	for _, p := range h.room.players {
		after = append(after, attrValue(p, AttrHobby))
	}
	sort.Strings(before)
	sort.Strings(after)
	assert.Equal(t, before, after)

	for _, p := range h.room.players {
		p.ActionCardRevealed = true
	}
	require.NoError(t, h.room.ShuffleAttribute(h.host(), AttrAction))
	for _, p := range h.room.players {
		assert.False(t, p.ActionCardRevealed)
	}
}

func TestReplaceAttribute(t *testing.T) {
	h := newHarness(t, 4)
	h.start(t)
	p := h.room.players[3]
	old := attrValue(p, AttrBaggage)

	require.NoError(t, h.room.ReplaceAttribute(h.host(), p.ID, AttrBaggage))
	assert.NotEqual(t, old, attrValue(p, AttrBaggage))
	assert.Len(t, p.Character.Attributes, 6)
}

func TestDeleteAttribute(t *testing.T) {
	h := newHarness(t, 4)
	h.start(t)

	p := h.room.players[1]
	p.Revealed = []int{0, 2}
	require.NoError(t, h.room.DeleteAttribute(h.host(), p.ID, AttrBio))
	assert.Len(t, p.Character.Attributes, 5)
	assert.Equal(t, []int{0, 1}, p.Revealed)
	assert.Equal(t, AttrHealth, p.Character.Attributes[1].Type)
	assert.ErrorIs(t, h.room.DeleteAttribute(h.host(), p.ID, AttrBio), ErrAttributeNotFound)

	q := h.room.players[2]
	q.Revealed = []int{0, 1, 2, 3, 4}
	assert.ErrorIs(t, h.room.DeleteAttribute(h.host(), q.ID, AttrFact), ErrLastHiddenCard)
	assert.ErrorIs(t, h.room.DeleteAttribute(h.host(), q.ID, AttrAction), ErrInvalidAttributeType)
}

func TestForceRevealSparesLastHiddenCard(t *testing.T) {
	h := newHarness(t, 4)
	h.start(t)

	last := h.room.players[3]
	last.Revealed = []int{0, 1, 3, 4, 5} // only health hidden

	require.NoError(t, h.room.ForceReveal(h.host(), AttrHealth))
	for _, p := range h.room.players[:3] {
		assert.True(t, p.isRevealed(p.Character.indexOf(AttrHealth)), p.Name)
	}
	assert.Len(t, last.hidden(), 1)
}

func TestBunkerCardEdits(t *testing.T) {
	h := newHarness(t, 4)
	h.start(t)
	h.sched.Advance(h.room.cfg.CatastropheReveal)
	g := h.game()
	require.Equal(t, 1, g.RevealedBunkerCount)

	assert.ErrorIs(t, h.room.RemoveBunkerCard(h.host(), 1), ErrInvalidIndex)

	require.NoError(t, h.room.ReplaceBunkerCard(h.host(), 0))
	assert.Equal(t, "spare-0", g.BunkerCards[0].Title)

	require.NoError(t, h.room.RemoveBunkerCard(h.host(), 0))
	assert.Equal(t, 0, g.RevealedBunkerCount)
	assert.Len(t, g.BunkerCards, 2)
}

func TestEliminateAndRevive(t *testing.T) {
	h := newHarness(t, 4)
	h.toReveal(t)
	g := h.game()
	host, p2 := h.ids[0], h.ids[1]

	require.NoError(t, h.room.EliminatePlayer(host, host))
	assert.Equal(t, p2, g.currentTurn())
	assert.Equal(t, []string{host}, g.Eliminated)
	assert.Equal(t, host, g.LastEliminatedID)
	assert.ErrorIs(t, h.room.EliminatePlayer(host, host), ErrPlayerEliminated)

	require.NoError(t, h.room.RevivePlayer(host, host))
	assert.Empty(t, g.Eliminated)
	assert.Empty(t, g.LastEliminatedID)
	assert.ErrorIs(t, h.room.RevivePlayer(host, p2), ErrPlayerAlive)
}

func TestEliminateLastRevealerEndsRevealPhase(t *testing.T) {
	h := newHarness(t, 4)
	h.toReveal(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.room.RevealAttribute(h.game().currentTurn(), nil))
	}
	require.Equal(t, h.ids[3], h.game().currentTurn())

	require.NoError(t, h.room.EliminatePlayer(h.host(), h.ids[3]))
	assert.NotEqual(t, PhaseRoundReveal, h.room.Phase())
}
