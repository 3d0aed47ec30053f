package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock and manualScheduler drive room timers without real time passing.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeTimer struct {
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type pendingCall struct {
	at    time.Time
	seq   int
	fn    func()
	timer *fakeTimer
}

type manualScheduler struct {
	clock   *fakeClock
	seq     int
	pending []*pendingCall
}

func newFakeTime() (*fakeClock, *manualScheduler) {
	clk := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return clk, &manualScheduler{clock: clk}
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.seq++
	t := &fakeTimer{}
	s.pending = append(s.pending, &pendingCall{at: s.clock.now.Add(d), seq: s.seq, fn: fn, timer: t})
	return t
}

// Advance moves the clock forward by d, firing due callbacks in deadline order.
// Callbacks scheduled while advancing fire too if they fall inside the window.
func (s *manualScheduler) Advance(d time.Duration) {
	end := s.clock.now.Add(d)
	for {
		s.pending = slices.DeleteFunc(s.pending, func(c *pendingCall) bool { return c.timer.stopped })
		next := -1
		for i, c := range s.pending {
			if c.at.After(end) {
				continue
			}
			if next < 0 || c.at.Before(s.pending[next].at) || (c.at.Equal(s.pending[next].at) && c.seq < s.pending[next].seq) {
				next = i
			}
		}
		if next < 0 {
			break
		}
		c := s.pending[next]
		s.pending = slices.Delete(s.pending, next, next+1)
		if c.at.After(s.clock.now) {
			s.clock.now = c.at
		}
		c.timer.fired = true
		c.fn()
	}
	s.clock.now = end
}

type fakeConn struct {
	open   bool
	events []Event
}

func newFakeConn() *fakeConn { return &fakeConn{open: true} }

func (c *fakeConn) Send(evt Event) error {
	if !c.open {
		return fmt.Errorf("closed")
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *fakeConn) IsOpen() bool { return c.open }

func (c *fakeConn) count(t EventType) int {
	n := 0
	for _, e := range c.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(t EventType) (Event, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == t {
			return c.events[i], true
		}
	}
	return Event{}, false
}

// stubContent hands out distinct, predictable cards.
type stubContent struct{ n int }

func (s *stubContent) Character(_ *rand.Rand, used map[string]bool) Character {
	s.n++
	c := Character{ActionCard: ActionCard{ID: fmt.Sprintf("action-%d", s.n), Title: fmt.Sprintf("Action %d", s.n)}}
	for _, t := range AttributeOrder {
		c.Attributes = append(c.Attributes, Attribute{Type: t, Label: string(t), Value: fmt.Sprintf("%s-%d", t, s.n)})
	}
	return c
}

func (s *stubContent) Catastrophe(*rand.Rand) Catastrophe {
	return Catastrophe{Title: "Flood", Description: "Water everywhere"}
}

func (s *stubContent) BunkerCards(_ *rand.Rand, n int) []BunkerCard {
	out := make([]BunkerCard, n)
	for i := range out {
		out[i] = BunkerCard{Title: fmt.Sprintf("bunker-%d", i)}
	}
	return out
}

func (s *stubContent) ThreatCard(*rand.Rand) ThreatCard {
	return ThreatCard{Title: "Raiders"}
}

func (s *stubContent) ReplacementBunkerCard(_ *rand.Rand, exclude map[string]bool) (BunkerCard, bool) {
	for i := 0; i < 100; i++ {
		c := BunkerCard{Title: fmt.Sprintf("spare-%d", i)}
		if !exclude[c.Title] {
			return c, true
		}
	}
	return BunkerCard{}, false
}

type harness struct {
	room     *Room
	clock    *fakeClock
	sched    *manualScheduler
	conns    map[string]*fakeConn
	ids      []string
	emptied  int
	finished []GameSummary
}

// newHarness seats n human players named P1..Pn with ids p1..pn. P1 hosts
// and everyone else is ready.
func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	clk, sched := newFakeTime()
	h := &harness{clock: clk, sched: sched, conns: map[string]*fakeConn{}}
	seq := 0
	h.room = NewRoom("ABCDEF", DefaultConfig(), Deps{
		Scheduler:  sched,
		Clock:      clk,
		Rand:       rand.New(rand.NewPCG(1, 2)),
		Content:    &stubContent{},
		Logger:     zap.NewNop(),
		NewID:      func() string { seq++; return fmt.Sprintf("p%d", seq) },
		OnEmpty:    func() { h.emptied++ },
		OnGameOver: func(s GameSummary) { h.finished = append(h.finished, s) },
	})
	for i := 1; i <= n; i++ {
		conn := newFakeConn()
		m, err := h.room.Join(fmt.Sprintf("P%d", i), conn)
		require.NoError(t, err)
		h.conns[m.PlayerID] = conn
		h.ids = append(h.ids, m.PlayerID)
		if i > 1 {
			require.NoError(t, h.room.SetReady(m.PlayerID, true))
		}
	}
	return h
}

func (h *harness) host() string { return h.ids[0] }

func (h *harness) game() *GameState { return h.room.game }

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.room.StartGame(h.host()))
}

// toReveal starts the game and runs the clock into round 1's reveal phase.
func (h *harness) toReveal(t *testing.T) {
	t.Helper()
	h.start(t)
	h.sched.Advance(h.room.cfg.CatastropheReveal)
	h.sched.Advance(h.room.cfg.BunkerExplore)
	require.Equal(t, PhaseRoundReveal, h.room.Phase())
}

// revealAll plays out the current reveal phase with default choices.
func (h *harness) revealAll(t *testing.T) {
	t.Helper()
	g := h.game()
	for g.Phase == PhaseRoundReveal {
		require.NoError(t, h.room.RevealAttribute(g.currentTurn(), nil))
	}
}

// toVote plays until the first ROUND_VOTE. With four players that is round 2.
func (h *harness) toVote(t *testing.T) {
	t.Helper()
	h.toReveal(t)
	for h.room.Phase() != PhaseRoundVote {
		switch h.room.Phase() {
		case PhaseRoundReveal:
			h.revealAll(t)
		case PhaseRoundDiscussion:
			require.NoError(t, h.room.SkipDiscussion(h.host()))
		case PhaseBunkerExplore:
			h.sched.Advance(h.room.cfg.BunkerExplore)
		default:
			t.Fatalf("unexpected phase %s", h.room.Phase())
		}
	}
}

func intPtr(i int) *int { return &i }
