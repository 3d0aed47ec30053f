package lobby

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
)

type Msg interface{ isLobbyMsg() }

// Call runs Fn against the room on the lobby goroutine and replies with its error.
type Call struct {
	Fn    func(r *engine.Room) error
	Reply chan error
}

func (Call) isLobbyMsg() {}

// fire delivers a timer callback scheduled by the room.
type fire struct{ fn func() }

func (fire) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Code     string
	Snapshot engine.PublicState
	Players  int
	Closed   bool
}

type Options struct {
	Code       string
	Config     engine.Config
	Content    engine.Content
	Logger     *zap.Logger
	Rand       *rand.Rand
	OnEmpty    func(code string)
	OnGameOver func(engine.GameSummary)
}

// Lobby owns one engine.Room and serializes every mutation of it, client
// calls and timer callbacks alike, through a single goroutine.
type Lobby struct {
	code  string
	inbox chan Msg
	room  *engine.Room
	log   *zap.Logger

	lastActivity atomic.Int64 // unix nanos
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
}

func NewLobby(parent context.Context, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	l := &Lobby{
		code:   opts.Code,
		inbox:  make(chan Msg, 64), // Small buffer
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.room = engine.NewRoom(opts.Code, opts.Config, engine.Deps{
		Scheduler: scheduler{l},
		Content:   opts.Content,
		Rand:      opts.Rand,
		Logger:    opts.Logger,
		OnEmpty: func() {
			if opts.OnEmpty != nil {
				opts.OnEmpty(opts.Code)
			}
		},
		OnGameOver: opts.OnGameOver,
	})
	l.touch()

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Inbox exposes the inbox so tests or the WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// LastActivity is safe to call from any goroutine.
func (l *Lobby) LastActivity() time.Time {
	return time.Unix(0, l.lastActivity.Load())
}

func (l *Lobby) touch() {
	l.lastActivity.Store(l.room.LastActivity().UnixNano())
}

// Do runs fn on the lobby goroutine and waits for its result.
func (l *Lobby) Do(ctx context.Context, fn func(r *engine.Room) error) error {
	reply := make(chan error, 1)
	select {
	case l.inbox <- Call{Fn: fn, Reply: reply}:
	case <-l.done:
		return engine.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-l.done:
		// The call that closed the room replied before the loop exited.
		select {
		case err := <-reply:
			return err
		default:
			return engine.ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close asks the lobby to stop without waiting for it.
func (l *Lobby) Close() {
	select {
	case l.inbox <- Shutdown{}:
	case <-l.done:
	default:
		l.cancel()
	}
}

func (l *Lobby) post(m Msg) {
	select {
	case l.inbox <- m:
	case <-l.done:
	}
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Call:
				msg.Reply <- msg.Fn(l.room)

			case fire:
				msg.fn()

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Code:     l.code,
					Snapshot: l.room.Snapshot(),
					Players:  l.room.PlayerCount(),
					Closed:   l.room.Closed(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
			l.touch()
			if l.room.Closed() {
				l.log.Debug("lobby stopped: room closed")
				l.cancel()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	l.room.Close()
	l.cancel()
}

// scheduler arms real timers whose callbacks re-enter through the inbox.
type scheduler struct{ l *Lobby }

func (s scheduler) AfterFunc(d time.Duration, fn func()) engine.Timer {
	return time.AfterFunc(d, func() { s.l.post(fire{fn: fn}) })
}
