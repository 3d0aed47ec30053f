package types

type ClientMessage struct {
	Type           string `json:"type"`
	PlayerName     string `json:"playerName,omitempty"`
	RoomCode       string `json:"roomCode,omitempty"`
	PlayerID       string `json:"playerId,omitempty"`
	Ready          bool   `json:"ready,omitempty"`
	AttributeIndex *int   `json:"attributeIndex,omitempty"`
	TargetPlayerID string `json:"targetPlayerId,omitempty"`
	Player1ID      string `json:"player1Id,omitempty"`
	Player2ID      string `json:"player2Id,omitempty"`
	AttributeType  string `json:"attributeType,omitempty"`
	CardIndex      *int   `json:"cardIndex,omitempty"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
