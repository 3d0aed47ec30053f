package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
)

func TestClient_SendEncodesEnvelope(t *testing.T) {
	c := newClient(1)
	require.NoError(t, c.Send(engine.Event{Type: engine.EvtPlayerEliminated, Payload: engine.EliminatedPayload{PlayerID: "p1", PlayerName: "Ann"}}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(<-c.out, &got))
	assert.Equal(t, "game:eliminated", got["type"])
	assert.Equal(t, map[string]any{"playerId": "p1", "playerName": "Ann"}, got["payload"])
}

func TestClient_FullOutboxDrops(t *testing.T) {
	c := newClient(1)
	require.NoError(t, c.Send(engine.Event{Type: engine.EvtState}))
	assert.ErrorIs(t, c.Send(engine.Event{Type: engine.EvtState}), errOutboxFull)
}

func TestClient_ClosedRejects(t *testing.T) {
	c := newClient(1)
	c.close()
	c.close()
	assert.False(t, c.IsOpen())
	assert.ErrorIs(t, c.Send(engine.Event{Type: engine.EvtState}), errClosed)
}
