package lobby

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bunker-backend/internal/content"
	"github.com/DoyleJ11/bunker-backend/internal/engine"
)

// chanConn is an engine.Conn that forwards events to a buffered channel.
type chanConn struct {
	out chan engine.Event
}

func newChanConn(n int) *chanConn { return &chanConn{out: make(chan engine.Event, n)} }

func (c *chanConn) Send(evt engine.Event) error {
	select {
	case c.out <- evt:
		return nil
	default:
		return fmt.Errorf("outbox full")
	}
}

func (c *chanConn) IsOpen() bool { return true }

// helper: receive the next state snapshot with a timeout so tests never hang
func recvState(t *testing.T, ch <-chan engine.Event, within time.Duration) engine.PublicState {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case evt := <-ch:
			if evt.Type == engine.EvtState {
				return evt.Payload.(engine.PublicState)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot")
			return engine.PublicState{} // unreachable
		}
	}
}

func recvNoState(t *testing.T, ch <-chan engine.Event, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case evt := <-ch:
			if evt.Type == engine.EvtState {
				t.Fatalf("expected no snapshot within %v, got phase %s", within, evt.Payload.(engine.PublicState).Phase)
			}
		case <-deadline:
			return
		}
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func fastConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.CatastropheReveal = 30 * time.Millisecond
	cfg.BunkerExplore = 30 * time.Millisecond
	cfg.ReconnectGrace = 50 * time.Millisecond
	return cfg
}

func newTestLobby(t *testing.T, opts Options) *Lobby {
	t.Helper()
	catalog, err := content.Default()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	opts.Code = "LOBBY1"
	opts.Content = catalog
	opts.Rand = rand.New(rand.NewPCG(3, 4))
	if opts.Config.MaxPlayers == 0 {
		opts.Config = fastConfig()
	}
	return NewLobby(ctx, opts)
}

// seat joins n players and readies everyone but the host.
func seat(t *testing.T, l *Lobby, n int) ([]string, *chanConn) {
	t.Helper()
	hostConn := newChanConn(256)
	var ids []string
	for i := 0; i < n; i++ {
		var conn engine.Conn = newChanConn(256)
		if i == 0 {
			conn = hostConn
		}
		var m engine.Membership
		err := l.Do(context.Background(), func(r *engine.Room) error {
			var err error
			m, err = r.Join(fmt.Sprintf("P%d", i+1), conn)
			if err != nil || i == 0 {
				return err
			}
			return r.SetReady(m.PlayerID, true)
		})
		require.NoError(t, err)
		ids = append(ids, m.PlayerID)
	}
	return ids, hostConn
}

func TestLobby_Join_BroadcastsSnapshot(t *testing.T) {
	l := newTestLobby(t, Options{})
	_, conn := seat(t, l, 1)

	snap := recvState(t, conn.out, 100*time.Millisecond)
	assert.Equal(t, engine.PhaseLobby, snap.Phase)
	require.Len(t, snap.Players, 1)
	assert.True(t, snap.Players[0].IsHost)
}

func TestLobby_Do_ReturnsEngineErrors(t *testing.T) {
	l := newTestLobby(t, Options{})
	ids, _ := seat(t, l, 2)

	err := l.Do(context.Background(), func(r *engine.Room) error { return r.StartGame(ids[1]) })
	assert.ErrorIs(t, err, engine.ErrNotHost)
}

func TestLobby_TimerFires_ThroughInbox(t *testing.T) {
	l := newTestLobby(t, Options{})
	ids, conn := seat(t, l, 4)

	require.NoError(t, l.Do(context.Background(), func(r *engine.Room) error { return r.StartGame(ids[0]) }))

	for {
		snap := recvState(t, conn.out, 500*time.Millisecond)
		if snap.Phase == engine.PhaseRoundReveal {
			assert.Equal(t, 1, snap.Round)
			assert.Equal(t, 1, snap.RevealedBunkerCount)
			return
		}
	}
}

func TestLobby_Shutdown_StopsTimer_NoFire(t *testing.T) {
	cfg := fastConfig()
	cfg.CatastropheReveal = 300 * time.Millisecond
	l := newTestLobby(t, Options{Config: cfg})
	ids, conn := seat(t, l, 4)

	require.NoError(t, l.Do(context.Background(), func(r *engine.Room) error { return r.StartGame(ids[0]) }))
	snap := recvState(t, conn.out, 100*time.Millisecond)
	for snap.Phase != engine.PhaseCatastropheReveal {
		snap = recvState(t, conn.out, 100*time.Millisecond)
	}

	l.Inbox() <- Shutdown{}
	<-l.Done()
	recvNoState(t, conn.out, 400*time.Millisecond) // > CatastropheReveal

	err := l.Do(context.Background(), func(r *engine.Room) error { return nil })
	assert.ErrorIs(t, err, engine.ErrRoomClosed)
}

func TestLobby_EmptyRoom_StopsAndNotifies(t *testing.T) {
	var emptied atomic.Value
	l := newTestLobby(t, Options{OnEmpty: func(code string) { emptied.Store(code) }})
	ids, _ := seat(t, l, 1)

	require.NoError(t, l.Do(context.Background(), func(r *engine.Room) error { return r.Leave(ids[0]) }))

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatalf("lobby did not stop after its last player left")
	}
	assert.Equal(t, "LOBBY1", emptied.Load())
}

func TestLobby_GraceTimerRemovesPlayer(t *testing.T) {
	l := newTestLobby(t, Options{})
	ids, _ := seat(t, l, 2)

	var leaving engine.Conn
	require.NoError(t, l.Do(context.Background(), func(r *engine.Room) error {
		leaving = newChanConn(8)
		_, err := r.Rejoin(ids[1], leaving)
		return err
	}))
	require.NoError(t, l.Do(context.Background(), func(r *engine.Room) error {
		r.Disconnect(ids[1], leaving)
		return nil
	}))

	deadline := time.Now().Add(time.Second)
	for {
		reply := make(chan View, 1)
		l.Inbox() <- GetState{Reply: reply}
		if recvView(t, reply, 100*time.Millisecond).Players == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("disconnected player was never removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLobby_LastActivityAdvances(t *testing.T) {
	l := newTestLobby(t, Options{})
	before := l.LastActivity()
	time.Sleep(5 * time.Millisecond)
	seat(t, l, 1)
	assert.True(t, l.LastActivity().After(before))
}
