package engine

import (
	"slices"

	"go.uber.org/zap"
)

// Host-only live edits. All of them are allowed in any phase of a running game.

func (r *Room) requireAdmin(actorID string) (*GameState, error) {
	if err := r.requireHost(actorID); err != nil {
		return nil, err
	}
	return r.requireGame()
}

func (r *Room) dealtPlayer(id string) (*Player, error) {
	p := r.player(id)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if p.Character == nil {
		return nil, ErrGameNotStarted
	}
	return p, nil
}

func (r *Room) aliveDealt() []*Player {
	var out []*Player
	for _, p := range r.players {
		if p.Alive && p.Character != nil {
			out = append(out, p)
		}
	}
	return out
}

// ShuffleAttribute redistributes one attribute type among alive players.
// Reveal flags stay with the slot, not the card.
func (r *Room) ShuffleAttribute(actorID string, t AttributeType) error {
	if _, err := r.requireAdmin(actorID); err != nil {
		return err
	}
	alive := r.aliveDealt()

	if t == AttrAction {
		if len(alive) < 2 {
			return ErrNotEnoughCards
		}
		cards := make([]ActionCard, len(alive))
		for i, p := range alive {
			cards[i] = p.Character.ActionCard
		}
		r.rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		for i, p := range alive {
			p.Character.ActionCard = cards[i]
			p.ActionCardRevealed = false
		}
		r.afterEdit(alive, zap.String("op", "shuffle"), zap.String("type", string(t)))
		return nil
	}

	var holders []*Player
	var attrs []Attribute
	for _, p := range alive {
		if i := p.Character.indexOf(t); i >= 0 {
			holders = append(holders, p)
			attrs = append(attrs, p.Character.Attributes[i])
		}
	}
	if len(holders) < 2 {
		return ErrNotEnoughCards
	}
	r.rng.Shuffle(len(attrs), func(i, j int) { attrs[i], attrs[j] = attrs[j], attrs[i] })
	for i, p := range holders {
		p.Character.Attributes[p.Character.indexOf(t)] = attrs[i]
	}
	r.afterEdit(holders, zap.String("op", "shuffle"), zap.String("type", string(t)))
	return nil
}

// SwapAttribute exchanges one attribute type between two players.
func (r *Room) SwapAttribute(actorID, p1ID, p2ID string, t AttributeType) error {
	if _, err := r.requireAdmin(actorID); err != nil {
		return err
	}
	if p1ID == p2ID {
		return ErrInvalidTarget
	}
	p1, err := r.dealtPlayer(p1ID)
	if err != nil {
		return err
	}
	p2, err := r.dealtPlayer(p2ID)
	if err != nil {
		return err
	}

	if t == AttrAction {
		p1.Character.ActionCard, p2.Character.ActionCard = p2.Character.ActionCard, p1.Character.ActionCard
		p1.ActionCardRevealed, p2.ActionCardRevealed = false, false
	} else {
		i1, i2 := p1.Character.indexOf(t), p2.Character.indexOf(t)
		if i1 < 0 || i2 < 0 {
			return ErrAttributeNotFound
		}
		a1, a2 := &p1.Character.Attributes[i1], &p2.Character.Attributes[i2]
		*a1, *a2 = *a2, *a1
	}
	r.afterEdit([]*Player{p1, p2}, zap.String("op", "swap"), zap.String("type", string(t)))
	return nil
}

// ReplaceAttribute deals the target a fresh card of type t.
func (r *Room) ReplaceAttribute(actorID, targetID string, t AttributeType) error {
	if _, err := r.requireAdmin(actorID); err != nil {
		return err
	}
	p, err := r.dealtPlayer(targetID)
	if err != nil {
		return err
	}

	used := make(map[string]bool, len(r.players))
	for _, other := range r.players {
		if other.Character == nil {
			continue
		}
		if i := other.Character.indexOf(AttrProfession); i >= 0 {
			used[other.Character.Attributes[i].Value] = true
		}
	}
	fresh := r.content.Character(r.rng, used)

	if t == AttrAction {
		p.Character.ActionCard = fresh.ActionCard
		p.ActionCardRevealed = false
	} else {
		i := p.Character.indexOf(t)
		if i < 0 {
			return ErrAttributeNotFound
		}
		j := fresh.indexOf(t)
		if j < 0 {
			return ErrNoReplacement
		}
		p.Character.Attributes[i] = fresh.Attributes[j]
	}
	r.afterEdit([]*Player{p}, zap.String("op", "replace"), zap.String("type", string(t)))
	return nil
}

// DeleteAttribute removes one attribute from the target's character. A card
// that would leave the character with nothing hidden cannot be deleted
// before the game is over.
func (r *Room) DeleteAttribute(actorID, targetID string, t AttributeType) error {
	g, err := r.requireAdmin(actorID)
	if err != nil {
		return err
	}
	if t == AttrAction {
		return ErrInvalidAttributeType
	}
	p, err := r.dealtPlayer(targetID)
	if err != nil {
		return err
	}
	i := p.Character.indexOf(t)
	if i < 0 {
		return ErrAttributeNotFound
	}
	if g.Phase != PhaseGameOver && !p.isRevealed(i) && len(p.hidden()) <= 1 {
		return ErrLastHiddenCard
	}

	p.Character.Attributes = slices.Delete(p.Character.Attributes, i, i+1)
	revealed := p.Revealed[:0]
	for _, idx := range p.Revealed {
		switch {
		case idx == i:
		case idx > i:
			revealed = append(revealed, idx-1)
		default:
			revealed = append(revealed, idx)
		}
	}
	p.Revealed = revealed
	r.afterEdit([]*Player{p}, zap.String("op", "delete"), zap.String("type", string(t)))
	return nil
}

// ForceReveal reveals type t for every alive player. Players for whom it is
// the last hidden attribute are skipped until the game is over.
func (r *Room) ForceReveal(actorID string, t AttributeType) error {
	g, err := r.requireAdmin(actorID)
	if err != nil {
		return err
	}
	for _, p := range r.aliveDealt() {
		if t == AttrAction {
			p.ActionCardRevealed = true
			continue
		}
		i := p.Character.indexOf(t)
		if i < 0 || p.isRevealed(i) {
			continue
		}
		if g.Phase != PhaseGameOver && len(p.hidden()) <= 1 {
			continue
		}
		p.Revealed = append(p.Revealed, i)
	}
	r.log.Info("admin edit", zap.String("op", "forceReveal"), zap.String("type", string(t)))
	r.broadcast()
	return nil
}

func (r *Room) revealedBunkerIndex(g *GameState, idx int) error {
	if idx < 0 || idx >= g.RevealedBunkerCount {
		return ErrInvalidIndex
	}
	return nil
}

// RemoveBunkerCard discards a revealed bunker card.
func (r *Room) RemoveBunkerCard(actorID string, idx int) error {
	g, err := r.requireAdmin(actorID)
	if err != nil {
		return err
	}
	if err := r.revealedBunkerIndex(g, idx); err != nil {
		return err
	}
	g.BunkerCards = slices.Delete(g.BunkerCards, idx, idx+1)
	g.RevealedBunkerCount--
	r.log.Info("admin edit", zap.String("op", "removeBunkerCard"), zap.Int("index", idx))
	r.broadcast()
	return nil
}

// ReplaceBunkerCard swaps a revealed bunker card for one not in play.
func (r *Room) ReplaceBunkerCard(actorID string, idx int) error {
	g, err := r.requireAdmin(actorID)
	if err != nil {
		return err
	}
	if err := r.revealedBunkerIndex(g, idx); err != nil {
		return err
	}
	exclude := make(map[string]bool, len(g.BunkerCards))
	for _, c := range g.BunkerCards {
		exclude[c.Title] = true
	}
	card, ok := r.content.ReplacementBunkerCard(r.rng, exclude)
	if !ok {
		return ErrNoReplacement
	}
	g.BunkerCards[idx] = card
	r.log.Info("admin edit", zap.String("op", "replaceBunkerCard"), zap.Int("index", idx))
	r.broadcast()
	return nil
}

// RevivePlayer brings an eliminated player back.
func (r *Room) RevivePlayer(actorID, targetID string) error {
	g, err := r.requireAdmin(actorID)
	if err != nil {
		return err
	}
	p, err := r.dealtPlayer(targetID)
	if err != nil {
		return err
	}
	if p.Alive {
		return ErrPlayerAlive
	}
	p.Alive = true
	g.Eliminated = slices.DeleteFunc(g.Eliminated, func(id string) bool { return id == targetID })
	if g.LastEliminatedID == targetID {
		g.LastEliminatedID = ""
		if n := len(g.Eliminated); n > 0 {
			g.LastEliminatedID = g.Eliminated[n-1]
		}
	}
	r.log.Info("admin edit", zap.String("op", "revive"), zap.String("player", targetID))
	r.broadcast()
	return nil
}

// EliminatePlayer removes a player from play without a vote.
func (r *Room) EliminatePlayer(actorID, targetID string) error {
	g, err := r.requireAdmin(actorID)
	if err != nil {
		return err
	}
	p, err := r.dealtPlayer(targetID)
	if err != nil {
		return err
	}
	if !p.Alive {
		return ErrPlayerEliminated
	}
	r.markEliminated(g, p)
	g.dropFromTurnOrder(targetID)
	g.TiebreakIDs = slices.DeleteFunc(g.TiebreakIDs, func(id string) bool { return id == targetID })
	r.log.Info("admin edit", zap.String("op", "eliminate"), zap.String("player", targetID))
	if r.settle(g) {
		return nil
	}
	r.broadcast()
	return nil
}

// GrantImmunity shields an alive player from the next elimination.
func (r *Room) GrantImmunity(actorID, targetID string) error {
	if _, err := r.requireAdmin(actorID); err != nil {
		return err
	}
	p, err := r.dealtPlayer(targetID)
	if err != nil {
		return err
	}
	if !p.Alive {
		return ErrPlayerEliminated
	}
	p.Immune = true
	r.log.Info("admin edit", zap.String("op", "immunity"), zap.String("player", targetID))
	r.broadcast()
	return nil
}

// afterEdit re-sends private characters to the affected players.
func (r *Room) afterEdit(affected []*Player, fields ...zap.Field) {
	r.log.Info("admin edit", fields...)
	for _, p := range affected {
		r.sendCharacter(p)
	}
	r.broadcast()
}
