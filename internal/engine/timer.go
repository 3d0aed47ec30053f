package engine

import "time"

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// Scheduler defers fn by d. Implementations must run fn on the same logical
// thread that drives the Room (see lobby.Lobby), never concurrently with it.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// phaseTimer is the single-slot phase deadline of a game. Every arm bumps
// token so a callback that lost a race with Stop still sees it is stale.
type phaseTimer struct {
	sched Scheduler
	clock Clock

	token    uint64
	timer    Timer
	deadline time.Time
	cont     func()

	paused    bool
	remaining time.Duration
}

func newPhaseTimer(sched Scheduler, clock Clock) *phaseTimer {
	return &phaseTimer{sched: sched, clock: clock}
}

// schedule replaces any pending continuation. While paused the continuation
// is parked with its full delay and armed on resume.
func (t *phaseTimer) schedule(d time.Duration, cont func()) {
	t.stop()
	t.cont = cont
	if t.paused {
		t.remaining = d
		return
	}
	t.arm(d)
}

func (t *phaseTimer) arm(d time.Duration) {
	t.token++
	tok := t.token
	t.deadline = t.clock.Now().Add(d)
	t.timer = t.sched.AfterFunc(d, func() {
		if tok != t.token || t.cont == nil {
			return
		}
		cont := t.cont
		t.timer = nil
		t.deadline = time.Time{}
		t.cont = nil
		cont()
	})
}

func (t *phaseTimer) stop() {
	t.token++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.deadline = time.Time{}
}

// cancel drops the pending continuation entirely. The paused flag survives.
func (t *phaseTimer) cancel() {
	t.stop()
	t.cont = nil
	t.remaining = 0
}

func (t *phaseTimer) armed() bool {
	return t.timer != nil
}

func (t *phaseTimer) pause() error {
	if t.paused {
		return ErrAlreadyPaused
	}
	if !t.armed() {
		return ErrNoTimer
	}
	t.paused = true
	t.remaining = max(0, t.deadline.Sub(t.clock.Now()))
	t.stop()
	return nil
}

func (t *phaseTimer) resume() error {
	if !t.paused {
		return ErrNotPaused
	}
	t.paused = false
	if t.cont != nil {
		d := t.remaining
		t.remaining = 0
		t.arm(d)
	}
	return nil
}

// remainingAt reports time left before the deadline, or false when nothing
// is armed. A paused timer reports its frozen remainder.
func (t *phaseTimer) remainingAt(now time.Time) (time.Duration, bool) {
	if t.paused && t.cont != nil {
		return t.remaining, true
	}
	if t.deadline.IsZero() {
		return 0, false
	}
	return max(0, t.deadline.Sub(now)), true
}
