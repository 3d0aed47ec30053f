package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
	"github.com/DoyleJ11/bunker-backend/internal/types"
)

var (
	errOutboxFull = errors.New("ws: outbox full")
	errClosed     = errors.New("ws: connection closed")
)

// client is the engine.Conn of one websocket. Send encodes on the caller's
// goroutine, so the payload is serialized while the room still owns it, and
// never blocks: a full outbox drops the message.
type client struct {
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(size int) *client {
	return &client{
		out:  make(chan []byte, size),
		done: make(chan struct{}),
	}
}

func (c *client) Send(evt engine.Event) error {
	return c.write(types.ServerMessage{Type: string(evt.Type), Payload: evt.Payload})
}

func (c *client) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *client) write(msg types.ServerMessage) error {
	if !c.IsOpen() {
		return errClosed
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", msg.Type, err)
	}
	select {
	case c.out <- payload:
		return nil
	case <-c.done:
		return errClosed
	default:
		return errOutboxFull
	}
}

func (c *client) close() { c.once.Do(func() { close(c.done) }) }
