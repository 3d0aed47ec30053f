package engine

import (
	"time"

	"go.uber.org/zap"
)

// botCoordinator holds the pending bot actions of a room. Every broadcast
// replaces them wholesale.
type botCoordinator struct {
	token  uint64
	timers []Timer
}

func (b *botCoordinator) cancel() {
	b.token++
	for _, t := range b.timers {
		t.Stop()
	}
	b.timers = nil
}

func (r *Room) scheduleBots() {
	r.bots.cancel()
	g := r.game
	if g == nil || r.closed || g.timer.paused {
		return
	}
	switch {
	case g.Phase == PhaseRoundReveal:
		r.scheduleBotReveal(g)
	case g.Phase.isVoting():
		r.scheduleBotVotes(g)
	}
}

func (r *Room) botDelay() time.Duration {
	lo, hi := r.cfg.BotActionDelayMin, r.cfg.BotActionDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.rng.Int64N(int64(hi-lo)))
}

func (r *Room) afterBot(d time.Duration, fn func()) {
	tok := r.bots.token
	t := r.sched.AfterFunc(d, func() {
		if r.closed || tok != r.bots.token {
			return
		}
		fn()
	})
	r.bots.timers = append(r.bots.timers, t)
}

func (r *Room) scheduleBotReveal(g *GameState) {
	id := g.currentTurn()
	p := r.player(id)
	if p == nil || !p.IsBot || !p.Alive {
		return
	}
	r.afterBot(r.botDelay(), func() {
		if r.game != g || g.currentTurn() != p.ID {
			return
		}
		hidden := p.hidden()
		var idx *int
		if len(hidden) > 1 && g.Round > 1 {
			pick := hidden[r.rng.IntN(len(hidden))]
			idx = &pick
		}
		if err := r.RevealAttribute(p.ID, idx); err != nil {
			r.log.Warn("bot reveal rejected", zap.String("player", p.ID), zap.Error(err))
		}
	})
}

func (r *Room) scheduleBotVotes(g *GameState) {
	var bots []*Player
	for _, p := range r.players {
		if p.IsBot && !p.HasVoted && r.eligible(g, p) {
			bots = append(bots, p)
		}
	}
	for i, bot := range bots {
		d := r.botDelay() + time.Duration(i)*r.cfg.BotVoteStagger
		r.afterBot(d, func() {
			if r.game != g || !g.Phase.isVoting() || bot.HasVoted || !r.eligible(g, bot) {
				return
			}
			pool := g.TiebreakIDs
			if g.Phase == PhaseRoundVote {
				pool = r.aliveIDs()
			}
			var targets []string
			for _, id := range pool {
				if t := r.player(id); id != bot.ID && t != nil && t.Alive {
					targets = append(targets, id)
				}
			}
			if len(targets) == 0 {
				return
			}
			target := targets[r.rng.IntN(len(targets))]
			if err := r.CastVote(bot.ID, target); err != nil {
				r.log.Warn("bot vote rejected", zap.String("player", bot.ID), zap.Error(err))
			}
		})
	}
}
