package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
	"github.com/DoyleJ11/bunker-backend/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby registers a lobby under a fresh code.
type CreateLobby struct {
	Reply chan CreateResult
}

type CreateResult struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby // nil when absent
}

// RemoveLobby drops Code if it still maps to Lobby.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type GetStats struct {
	Reply chan Stats
}

type Stats struct {
	Rooms    int `json:"rooms"`
	MaxRooms int `json:"maxRooms"`
}

type ShutdownHub struct {
	Reply chan []*lobby.Lobby // lobbies that were asked to stop
}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (GetStats) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Room          engine.Config
	Content       engine.Content
	Logger        *zap.Logger
	MaxRooms      int
	CodeLength    int
	InactiveTTL   time.Duration
	SweepInterval time.Duration
	OnGameOver    func(engine.GameSummary)
	Now           func() time.Time
}

// Hub is the room registry. A single goroutine owns the code -> lobby map.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CodeLength == 0 {
		opts.CodeLength = 6
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) CodeLength() int { return h.opts.CodeLength }

func (h *Hub) loop() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.opts.SweepInterval > 0 {
		t := time.NewTicker(h.opts.SweepInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case <-tick:
			h.sweep(h.opts.Now())

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create()
				msg.Reply <- CreateResult{Lobby: lb, Err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil && (msg.Lobby == nil || lb == msg.Lobby) {
					delete(h.lobbies, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code))
				}

			case GetStats:
				msg.Reply <- Stats{Rooms: len(h.lobbies), MaxRooms: h.opts.MaxRooms}

			case ShutdownHub:
				msg.Reply <- h.closeAll()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create() (*lobby.Lobby, error) {
	if h.opts.MaxRooms > 0 && len(h.lobbies) >= h.opts.MaxRooms {
		return nil, engine.ErrTooManyRooms
	}

	var code string
	for attempt := 0; ; attempt++ {
		if attempt == 20 {
			return nil, fmt.Errorf("hub: no free room code after %d attempts", attempt)
		}
		c, err := GenerateCode(h.opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("hub: generate code: %w", err)
		}
		if h.lobbies[c] == nil {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}

	var lb *lobby.Lobby
	lb = lobby.NewLobby(h.ctx, lobby.Options{
		Code:    code,
		Config:  h.opts.Room,
		Content: h.opts.Content,
		Logger:  h.log.With(zap.String("room", code)),
		OnEmpty: func(code string) {
			h.post(RemoveLobby{Code: code, Lobby: lb})
		},
		OnGameOver: h.opts.OnGameOver,
	})
	h.lobbies[code] = lb
	h.log.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.lobbies)))
	return lb, nil
}

// sweep drops lobbies that stopped on their own or have been idle past the TTL.
func (h *Hub) sweep(now time.Time) {
	for code, lb := range h.lobbies {
		select {
		case <-lb.Done():
			delete(h.lobbies, code)
			continue
		default:
		}
		if h.opts.InactiveTTL > 0 && now.Sub(lb.LastActivity()) > h.opts.InactiveTTL {
			lb.Close()
			delete(h.lobbies, code)
			h.log.Info("idle room swept", zap.String("room", code))
		}
	}
}

func (h *Hub) closeAll() []*lobby.Lobby {
	closed := make([]*lobby.Lobby, 0, len(h.lobbies))
	for _, lb := range h.lobbies {
		lb.Close()
		closed = append(closed, lb)
	}
	clear(h.lobbies)
	return closed
}

func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.done:
	}
}

// request sends m and waits for the hub to be reachable.
func (h *Hub) request(ctx context.Context, m HubMsg) error {
	select {
	case <-h.done:
		return engine.ErrRoomClosed
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return engine.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		// A reply sent just before exiting still wins.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, engine.ErrRoomClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create registers a new lobby under a fresh code.
func (h *Hub) Create(ctx context.Context) (*lobby.Lobby, error) {
	reply := make(chan CreateResult, 1)
	if err := h.request(ctx, CreateLobby{Reply: reply}); err != nil {
		return nil, err
	}
	res, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.Lobby, res.Err
}

// Get looks up a lobby by code.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.request(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, engine.ErrRoomNotFound
	}
	return lb, nil
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := h.request(ctx, GetStats{Reply: reply}); err != nil {
		return Stats{}, err
	}
	return await(ctx, h, reply)
}

// Shutdown stops every lobby and waits until they have exited or ctx ends.
func (h *Hub) Shutdown(ctx context.Context) error {
	reply := make(chan []*lobby.Lobby, 1)
	err := h.request(ctx, ShutdownHub{Reply: reply})
	if err == nil {
		var lobbies []*lobby.Lobby
		if lobbies, err = await(ctx, h, reply); err == nil {
			return h.drain(ctx, lobbies)
		}
	}
	if errors.Is(err, engine.ErrRoomClosed) {
		return nil // already stopped
	}
	return err
}

func (h *Hub) drain(ctx context.Context, lobbies []*lobby.Lobby) error {
	for _, lb := range lobbies {
		select {
		case <-lb.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.log.Info("hub stopped", zap.Int("rooms", len(lobbies)))
	return nil
}
