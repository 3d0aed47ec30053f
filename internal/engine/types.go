package engine

import (
	"time"
)

type Phase string

const (
	PhaseLobby             Phase = "LOBBY"
	PhaseCatastropheReveal Phase = "CATASTROPHE_REVEAL"
	PhaseBunkerExplore     Phase = "BUNKER_EXPLORE"
	PhaseRoundReveal       Phase = "ROUND_REVEAL"
	PhaseRoundDiscussion   Phase = "ROUND_DISCUSSION"
	PhaseRoundVote         Phase = "ROUND_VOTE"
	PhaseRoundVoteTiebreak Phase = "ROUND_VOTE_TIEBREAK"
	PhaseRoundResult       Phase = "ROUND_RESULT"
	PhaseGameOver          Phase = "GAME_OVER"
)

func (p Phase) isVoting() bool {
	return p == PhaseRoundVote || p == PhaseRoundVoteTiebreak
}

// AttributeType is the closed set of character card kinds. AttrAction names
// the action card, which is not one of the six attributes.
type AttributeType string

const (
	AttrProfession AttributeType = "profession"
	AttrBio        AttributeType = "bio"
	AttrHealth     AttributeType = "health"
	AttrHobby      AttributeType = "hobby"
	AttrBaggage    AttributeType = "baggage"
	AttrFact       AttributeType = "fact"
	AttrAction     AttributeType = "action"
)

// AttributeOrder is the order attributes appear on a freshly generated character.
var AttributeOrder = []AttributeType{AttrProfession, AttrBio, AttrHealth, AttrHobby, AttrBaggage, AttrFact}

func ParseAttributeType(s string) (AttributeType, error) {
	switch t := AttributeType(s); t {
	case AttrProfession, AttrBio, AttrHealth, AttrHobby, AttrBaggage, AttrFact, AttrAction:
		return t, nil
	default:
		return "", ErrInvalidAttributeType
	}
}

type Attribute struct {
	Type   AttributeType `json:"type"`
	Label  string        `json:"label"`
	Value  string        `json:"value"`
	Detail string        `json:"detail,omitempty"`
}

type ActionCard struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	TargetRequired bool   `json:"targetRequired"`
}

type Character struct {
	Attributes []Attribute `json:"attributes"`
	ActionCard ActionCard  `json:"actionCard"`
}

func (c *Character) indexOf(t AttributeType) int {
	for i, a := range c.Attributes {
		if a.Type == t {
			return i
		}
	}
	return -1
}

func (c *Character) clone() *Character {
	out := &Character{ActionCard: c.ActionCard}
	out.Attributes = append([]Attribute(nil), c.Attributes...)
	return out
}

type Catastrophe struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type BunkerCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ThreatCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type EventType string

const (
	EvtState              EventType = "game:state"
	EvtCharacter          EventType = "game:character"
	EvtAttributeRevealed  EventType = "game:attributeRevealed"
	EvtActionCardRevealed EventType = "game:actionCardRevealed"
	EvtPlayerEliminated   EventType = "game:eliminated"
	EvtGameOver           EventType = "game:over"
)

// Event is one outbound message for a connection.
type Event struct {
	Type    EventType
	Payload any
}

type AttributeRevealedPayload struct {
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Attribute  Attribute `json:"attribute"`
}

type ActionCardRevealedPayload struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	ActionCard ActionCard `json:"actionCard"`
}

type EliminatedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// Conn is the transport handle bound to a player or spectator. Send must not block.
type Conn interface {
	Send(evt Event) error
	IsOpen() bool
}

// Config holds the timing and sizing knobs of a room.
type Config struct {
	MinPlayers        int
	MaxPlayers        int
	TotalRounds       int
	MaxNameLength     int
	CatastropheReveal time.Duration
	BunkerExplore     time.Duration
	Discussion        time.Duration
	Vote              time.Duration
	TiebreakDefense   time.Duration
	ResultDisplay     time.Duration
	ReconnectGrace    time.Duration
	BotActionDelayMin time.Duration
	BotActionDelayMax time.Duration
	BotVoteStagger    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinPlayers:        4,
		MaxPlayers:        16,
		TotalRounds:       5,
		MaxNameLength:     30,
		CatastropheReveal: 8 * time.Second,
		BunkerExplore:     5 * time.Second,
		Discussion:        3 * time.Minute,
		Vote:              60 * time.Second,
		TiebreakDefense:   60 * time.Second,
		ResultDisplay:     6 * time.Second,
		ReconnectGrace:    60 * time.Second,
		BotActionDelayMin: time.Second,
		BotActionDelayMax: 3 * time.Second,
		BotVoteStagger:    500 * time.Millisecond,
	}
}
