package types

// RoomInfo is the body of GET /rooms/{code}.
type RoomInfo struct {
	Code       string `json:"code"`
	Phase      string `json:"phase"`
	Players    int    `json:"players"`
	Spectators int    `json:"spectators"`
	MaxPlayers int    `json:"maxPlayers"`
	Joinable   bool   `json:"joinable"`
}

// Health is the body of GET /healthz.
type Health struct {
	Status   string `json:"status"`
	Rooms    int    `json:"rooms"`
	MaxRooms int    `json:"maxRooms"`
}
