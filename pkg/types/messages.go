package types

// Client -> Server
// room:create:             playerName
// room:join:               roomCode, playerName
// room:spectate:           roomCode, playerName
// room:rejoin:             roomCode, playerId
// room:removeBot:          playerId
// player:ready:            ready
// game:revealAttribute:    attributeIndex (optional)
// vote:cast:               targetPlayerId
// admin:shuffleAll:        attributeType
// admin:swapAttribute:     player1Id, player2Id, attributeType
// admin:replaceAttribute:  targetPlayerId, attributeType
// admin:deleteAttribute:   targetPlayerId, attributeType
// admin:forceRevealType:   attributeType
// admin:removeBunkerCard:  cardIndex
// admin:replaceBunkerCard: cardIndex
// admin:revivePlayer, admin:eliminatePlayer, admin:grantImmunity: targetPlayerId
const (
	RoomCreate       = "room:create"
	RoomJoin         = "room:join"
	RoomSpectate     = "room:spectate"
	RoomRejoin       = "room:rejoin"
	RoomLeave        = "room:leave"
	RoomAddBot       = "room:addBot"
	RoomRemoveBot    = "room:removeBot"
	PlayerReady      = "player:ready"
	GameStart        = "game:start"
	GameReveal       = "game:revealAttribute"
	GameRevealCard   = "game:revealActionCard"
	GameEndGame      = "game:endGame"
	GamePlayAgain    = "game:playAgain"
	VoteCast         = "vote:cast"
	AdminShuffleAll  = "admin:shuffleAll"
	AdminSwap        = "admin:swapAttribute"
	AdminReplace     = "admin:replaceAttribute"
	AdminDelete      = "admin:deleteAttribute"
	AdminForceType   = "admin:forceRevealType"
	AdminRemoveCard  = "admin:removeBunkerCard"
	AdminReplaceCard = "admin:replaceBunkerCard"
	AdminRevive      = "admin:revivePlayer"
	AdminEliminate   = "admin:eliminatePlayer"
	AdminImmunity    = "admin:grantImmunity"
	AdminPause       = "admin:pause"
	AdminUnpause     = "admin:unpause"
	AdminSkip        = "admin:skipDiscussion"
)

// Server -> Client
// room:created, room:joined, room:spectating: roomCode, playerId, name, spectator
// room:error:                                  kind, message
// Game events (game:state, game:character, game:attributeRevealed,
// game:actionCardRevealed, game:eliminated, game:over) carry the engine
// event name as their type.
const (
	RoomCreated    = "room:created"
	RoomJoined     = "room:joined"
	RoomSpectating = "room:spectating"
	RoomError      = "room:error"
)

// Error kinds beyond the engine's categories.
const (
	ErrKindRateLimited = "rate_limited"
	ErrKindBadMessage  = "bad_message"
)
