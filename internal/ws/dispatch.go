package ws

import (
	"context"
	"errors"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
	"github.com/DoyleJ11/bunker-backend/internal/hub"
	"github.com/DoyleJ11/bunker-backend/internal/lobby"
	"github.com/DoyleJ11/bunker-backend/internal/types"
	wire "github.com/DoyleJ11/bunker-backend/pkg/types"
)

// action runs a seated player's request on the room goroutine.
type action func(r *engine.Room, playerID string, m types.ClientMessage) error

var actions = map[string]action{
	wire.PlayerReady: func(r *engine.Room, id string, m types.ClientMessage) error {
		return r.SetReady(id, m.Ready)
	},
	wire.GameStart: func(r *engine.Room, id string, _ types.ClientMessage) error {
		return r.StartGame(id)
	},
	wire.GameReveal: func(r *engine.Room, id string, m types.ClientMessage) error {
		return r.RevealAttribute(id, m.AttributeIndex)
	},
	wire.GameRevealCard: func(r *engine.Room, id string, _ types.ClientMessage) error {
		return r.RevealActionCard(id)
	},
	wire.VoteCast: func(r *engine.Room, id string, m types.ClientMessage) error {
		return r.CastVote(id, m.TargetPlayerID)
	},
	wire.GameEndGame: func(r *engine.Room, id string, _ types.ClientMessage) error {
		return r.EndGame(id)
	},
	wire.GamePlayAgain: func(r *engine.Room, id string, _ types.ClientMessage) error {
		return r.Reset(id)
	},
	wire.RoomAddBot: func(r *engine.Room, id string, _ types.ClientMessage) error {
		_, err := r.AddBot(id)
		return err
	},
	wire.RoomRemoveBot: func(r *engine.Room, id string, m types.ClientMessage) error {
		return r.RemoveBot(id, m.PlayerID)
	},

	wire.AdminShuffleAll: withType(func(r *engine.Room, id string, t engine.AttributeType, _ types.ClientMessage) error {
		return r.ShuffleAttribute(id, t)
	}),
	wire.AdminSwap: withType(func(r *engine.Room, id string, t engine.AttributeType, m types.ClientMessage) error {
		return r.SwapAttribute(id, m.Player1ID, m.Player2ID, t)
	}),
	wire.AdminReplace: withType(func(r *engine.Room, id string, t engine.AttributeType, m types.ClientMessage) error {
		return r.ReplaceAttribute(id, m.TargetPlayerID, t)
	}),
	wire.AdminDelete: withType(func(r *engine.Room, id string, t engine.AttributeType, m types.ClientMessage) error {
		return r.DeleteAttribute(id, m.TargetPlayerID, t)
	}),
	wire.AdminForceType: withType(func(r *engine.Room, id string, t engine.AttributeType, _ types.ClientMessage) error {
		return r.ForceReveal(id, t)
	}),
	wire.AdminRemoveCard: withCard(func(r *engine.Room, id string, idx int) error {
		return r.RemoveBunkerCard(id, idx)
	}),
	wire.AdminReplaceCard: withCard(func(r *engine.Room, id string, idx int) error {
		return r.ReplaceBunkerCard(id, idx)
	}),
	wire.AdminRevive: func(r *engine.Room, id string, m types.ClientMessage) error {
		return r.RevivePlayer(id, m.TargetPlayerID)
	},
	wire.AdminEliminate: func(r *engine.Room, id string, m types.ClientMessage) error {
		return r.EliminatePlayer(id, m.TargetPlayerID)
	},
	wire.AdminImmunity: func(r *engine.Room, id string, m types.ClientMessage) error {
		return r.GrantImmunity(id, m.TargetPlayerID)
	},
	wire.AdminPause: func(r *engine.Room, id string, _ types.ClientMessage) error {
		return r.Pause(id)
	},
	wire.AdminUnpause: func(r *engine.Room, id string, _ types.ClientMessage) error {
		return r.Unpause(id)
	},
	wire.AdminSkip: func(r *engine.Room, id string, _ types.ClientMessage) error {
		return r.SkipDiscussion(id)
	},
}

func withType(fn func(r *engine.Room, id string, t engine.AttributeType, m types.ClientMessage) error) action {
	return func(r *engine.Room, id string, m types.ClientMessage) error {
		t, err := engine.ParseAttributeType(m.AttributeType)
		if err != nil {
			return err
		}
		return fn(r, id, t, m)
	}
}

func withCard(fn func(r *engine.Room, id string, idx int) error) action {
	return func(r *engine.Room, id string, m types.ClientMessage) error {
		if m.CardIndex == nil {
			return engine.ErrInvalidIndex
		}
		return fn(r, id, *m.CardIndex)
	}
}

func (s *session) dispatch(ctx context.Context, m types.ClientMessage) error {
	switch m.Type {
	case wire.RoomCreate:
		return s.create(ctx, m)
	case wire.RoomJoin:
		return s.join(ctx, m, false)
	case wire.RoomSpectate:
		return s.join(ctx, m, true)
	case wire.RoomRejoin:
		return s.rejoin(ctx, m)
	case wire.RoomLeave:
		return s.leave(ctx)
	}

	act, ok := actions[m.Type]
	if !ok {
		return errUnknownType
	}
	if s.lb == nil {
		return errNotInRoom
	}
	if s.spectator {
		return errSpectator
	}
	id := s.playerID
	err := s.lb.Do(ctx, func(r *engine.Room) error {
		if !r.Bound(id, s.client) {
			return errSuperseded
		}
		return act(r, id, m)
	})
	if errors.Is(err, errSuperseded) {
		s.log.Info("stale session unseated")
		s.unseat()
	}
	return err
}

func (s *session) create(ctx context.Context, m types.ClientMessage) error {
	if s.lb != nil {
		return errAlreadyInRoom
	}
	name, err := engine.NormalizeName(m.PlayerName, s.opts.MaxNameLength)
	if err != nil {
		return err
	}
	lb, err := s.hub.Create(ctx)
	if err != nil {
		return err
	}

	var seat engine.Membership
	err = lb.Do(ctx, func(r *engine.Room) error {
		var err error
		seat, err = r.Join(name, s.client)
		return err
	})
	if err != nil {
		// Never joined: nothing would ever empty this room.
		lb.Close()
		return err
	}
	s.seat(lb, seat)
	s.log.Info("room created")
	return s.reply(wire.RoomCreated, seat)
}

func (s *session) lookup(ctx context.Context, raw string) (*lobby.Lobby, error) {
	code, ok := hub.NormalizeCode(raw, s.opts.CodeLength)
	if !ok {
		return nil, errInvalidCode
	}
	return s.hub.Get(ctx, code)
}

func (s *session) join(ctx context.Context, m types.ClientMessage, spectate bool) error {
	if s.lb != nil {
		return errAlreadyInRoom
	}
	lb, err := s.lookup(ctx, m.RoomCode)
	if err != nil {
		return err
	}

	var seat engine.Membership
	err = lb.Do(ctx, func(r *engine.Room) error {
		var err error
		if spectate {
			seat, err = r.Spectate(m.PlayerName, s.client)
		} else {
			seat, err = r.Join(m.PlayerName, s.client)
		}
		return err
	})
	if err != nil {
		return err
	}
	s.seat(lb, seat)
	if spectate {
		return s.reply(wire.RoomSpectating, seat)
	}
	return s.reply(wire.RoomJoined, seat)
}

func (s *session) rejoin(ctx context.Context, m types.ClientMessage) error {
	if s.lb != nil {
		return errAlreadyInRoom
	}
	lb, err := s.lookup(ctx, m.RoomCode)
	if err != nil {
		return err
	}

	var seat engine.Membership
	err = lb.Do(ctx, func(r *engine.Room) error {
		var err error
		seat, err = r.Rejoin(m.PlayerID, s.client)
		return err
	})
	if err != nil {
		return err
	}
	s.seat(lb, seat)
	s.log.Info("player rejoined")
	return s.reply(wire.RoomJoined, seat)
}

func (s *session) leave(ctx context.Context) error {
	if s.lb == nil {
		return errNotInRoom
	}
	id := s.playerID
	err := s.lb.Do(ctx, func(r *engine.Room) error {
		// A replaced session only lets go of its own handle.
		if !r.Bound(id, s.client) {
			return errSuperseded
		}
		return r.Leave(id)
	})
	s.unseat()
	if err != nil && !errors.Is(err, engine.ErrRoomClosed) && !errors.Is(err, errSuperseded) {
		return err
	}
	return nil
}
