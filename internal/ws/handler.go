package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
	"github.com/DoyleJ11/bunker-backend/internal/hub"
	"github.com/DoyleJ11/bunker-backend/internal/lobby"
	"github.com/DoyleJ11/bunker-backend/internal/ratelimit"
	"github.com/DoyleJ11/bunker-backend/internal/types"
	wire "github.com/DoyleJ11/bunker-backend/pkg/types"
)

var (
	errInvalidCode   = fmt.Errorf("%w: invalid room code", engine.ErrValidation)
	errUnknownType   = fmt.Errorf("%w: unknown message type", engine.ErrValidation)
	errNotInRoom     = fmt.Errorf("%w: not in a room", engine.ErrIllegalState)
	errAlreadyInRoom = fmt.Errorf("%w: already in a room", engine.ErrIllegalState)
	errSpectator     = fmt.Errorf("%w: spectators cannot act", engine.ErrPermission)
	errSuperseded    = fmt.Errorf("%w: seat taken over by another connection", engine.ErrIllegalState)
)

type Options struct {
	Logger         *zap.Logger
	OriginPatterns []string
	CodeLength     int
	MaxNameLength  int
	RateEvents     int
	RateWindow     time.Duration
	OutboxSize     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	ReadLimit      int64
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.CodeLength == 0 {
		o.CodeLength = 6
	}
	if o.OutboxSize == 0 {
		o.OutboxSize = 64
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.PingInterval == 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.ReadLimit == 0 {
		o.ReadLimit = 4096
	}
	return o
}

// session is the state of one websocket. Seat fields and log are only
// touched by the reader goroutine.
type session struct {
	hub     *hub.Hub
	opts    Options
	conn    *websocket.Conn
	client  *client
	limiter *ratelimit.Limiter
	base    *zap.Logger
	log     *zap.Logger

	lb        *lobby.Lobby
	playerID  string
	spectator bool
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(opts.ReadLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s := &session{
			hub:     h,
			opts:    opts,
			conn:    conn,
			client:  newClient(opts.OutboxSize),
			limiter: ratelimit.New(opts.RateEvents, opts.RateWindow),
			base:    opts.Logger.With(zap.String("remote", r.RemoteAddr)),
		}
		s.log = s.base
		defer s.client.close()

		go s.writeLoop(ctx, cancel, s.base)
		go s.pingLoop(ctx, cancel, s.base)

		s.readLoop(ctx)
		s.detach()
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (s *session) writeLoop(ctx context.Context, cancel context.CancelFunc, log *zap.Logger) {
	for {
		select {
		case payload := <-s.client.out:
			wctx, wcancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := s.conn.Write(wctx, websocket.MessageText, payload)
			wcancel()
			if err != nil {
				log.Debug("write failed", zap.Error(err))
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) pingLoop(ctx context.Context, cancel context.CancelFunc, log *zap.Logger) {
	t := time.NewTicker(s.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, s.opts.PingInterval)
			err := s.conn.Ping(pctx)
			pcancel()
			if err != nil {
				log.Debug("ping failed", zap.Error(err))
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					s.log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		if !s.limiter.Allow() {
			s.sendError(wire.ErrKindRateLimited, "too many messages, slow down")
			continue
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.sendError(wire.ErrKindBadMessage, "bad json")
			continue
		}
		if err := s.dispatch(ctx, cm); err != nil {
			s.fail(cm.Type, err)
		}
	}
}

// detach reports the dropped connection to the room so the grace period starts.
func (s *session) detach() {
	if s.lb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()
	id := s.playerID
	err := s.lb.Do(ctx, func(r *engine.Room) error {
		r.Disconnect(id, s.client)
		return nil
	})
	if err != nil && !errors.Is(err, engine.ErrRoomClosed) {
		s.log.Warn("disconnect not delivered", zap.String("room", s.lb.Code()), zap.Error(err))
	}
}

func (s *session) seat(lb *lobby.Lobby, m engine.Membership) {
	s.lb = lb
	s.playerID = m.PlayerID
	s.spectator = m.Spectator
	s.log = s.base.With(zap.String("room", m.RoomCode), zap.String("player", m.PlayerID))
}

func (s *session) unseat() {
	s.lb = nil
	s.playerID = ""
	s.spectator = false
	s.log = s.base
}

// reply queues a direct answer. A dropped reply is logged, not returned,
// so it never turns into a room:error.
func (s *session) reply(typ string, payload any) error {
	if err := s.client.write(types.ServerMessage{Type: typ, Payload: payload}); err != nil {
		s.log.Debug("reply dropped", zap.String("type", typ), zap.Error(err))
	}
	return nil
}

func (s *session) sendError(kind, message string) {
	_ = s.reply(wire.RoomError, types.ErrorPayload{Kind: kind, Message: message})
}

func (s *session) fail(typ string, err error) {
	kind := engine.Kind(err)
	msg := err.Error()
	if kind == "internal" {
		s.log.Warn("request failed", zap.String("type", typ), zap.Error(err))
		msg = "internal error"
	}
	if s.lb != nil {
		select {
		case <-s.lb.Done():
			s.unseat()
		default:
		}
	}
	s.sendError(kind, msg)
}
