package engine

type RevealedAttribute struct {
	Index     int       `json:"index"`
	Attribute Attribute `json:"attribute"`
}

type FullAttribute struct {
	Attribute
	WasRevealed bool `json:"wasRevealed"`
}

type PlayerInfo struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	IsHost             bool                `json:"isHost"`
	IsBot              bool                `json:"isBot"`
	Ready              bool                `json:"ready"`
	Connected          bool                `json:"connected"`
	Alive              bool                `json:"alive"`
	HasVoted           bool                `json:"hasVoted"`
	Immune             bool                `json:"immune"`
	RevealedAttributes []RevealedAttribute `json:"revealedAttributes"`
	ActionCardRevealed bool                `json:"actionCardRevealed"`
	ActionCard         *ActionCard         `json:"actionCard,omitempty"`
	AllAttributes      []FullAttribute     `json:"allAttributes,omitempty"`
}

type SpectatorInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PublicState is the snapshot every room member receives. It never carries
// hidden attributes or individual votes before the game is over.
type PublicState struct {
	RoomCode    string          `json:"roomCode"`
	HostID      string          `json:"hostId"`
	Phase       Phase           `json:"phase"`
	Paused      bool            `json:"paused"`
	Round       int             `json:"round"`
	TotalRounds int             `json:"totalRounds"`
	Players     []PlayerInfo    `json:"players"`
	Spectators  []SpectatorInfo `json:"spectators"`

	Catastrophe         *Catastrophe `json:"catastrophe,omitempty"`
	BunkerCards         []BunkerCard `json:"bunkerCards"`
	RevealedBunkerCount int          `json:"revealedBunkerCount"`
	TotalBunkerCards    int          `json:"totalBunkerCards"`
	Threat              *ThreatCard  `json:"threat,omitempty"`
	BunkerCapacity      int          `json:"bunkerCapacity"`

	CurrentTurnPlayerID string `json:"currentTurnPlayerId,omitempty"`
	TimerRemainingMs    *int64 `json:"timerRemainingMs,omitempty"`

	VotesCast          int            `json:"votesCast"`
	EligibleVoters     int            `json:"eligibleVoters"`
	VoteResults        map[string]int `json:"voteResults,omitempty"`
	TiebreakCandidates []string       `json:"tiebreakCandidates,omitempty"`
	EliminatedPlayerID string         `json:"eliminatedPlayerId,omitempty"`
	ImmunePlayerID     string         `json:"immunePlayerId,omitempty"`
	LastEliminatedID   string         `json:"lastEliminatedId,omitempty"`
	EliminationOrder   []string       `json:"eliminationOrder"`

	VotingSchedule        []int `json:"votingSchedule"`
	CurrentVotingInRound  int   `json:"currentVotingInRound"`
	VotingsInCurrentRound int   `json:"votingsInCurrentRound"`
}

// Snapshot projects the room into its client-visible form.
func (r *Room) Snapshot() PublicState {
	g := r.game
	s := PublicState{
		RoomCode:    r.code,
		HostID:      r.hostID,
		Phase:       r.Phase(),
		TotalRounds: r.cfg.TotalRounds,
		Players:     make([]PlayerInfo, 0, len(r.players)),
		Spectators:  make([]SpectatorInfo, 0, len(r.spectators)),
	}
	over := g != nil && g.Phase == PhaseGameOver

	for _, p := range r.players {
		info := PlayerInfo{
			ID:                 p.ID,
			Name:               p.Name,
			IsHost:             p.ID == r.hostID,
			IsBot:              p.IsBot,
			Ready:              p.Ready,
			Connected:          p.Connected,
			Alive:              p.Alive,
			HasVoted:           p.HasVoted,
			Immune:             p.Immune,
			ActionCardRevealed: p.ActionCardRevealed,
			RevealedAttributes: []RevealedAttribute{},
		}
		if c := p.Character; c != nil {
			for _, idx := range p.Revealed {
				if idx < len(c.Attributes) {
					info.RevealedAttributes = append(info.RevealedAttributes, RevealedAttribute{Index: idx, Attribute: c.Attributes[idx]})
				}
			}
			if p.ActionCardRevealed || over {
				card := c.ActionCard
				info.ActionCard = &card
			}
			if over {
				for i, a := range c.Attributes {
					info.AllAttributes = append(info.AllAttributes, FullAttribute{Attribute: a, WasRevealed: p.isRevealed(i)})
				}
			}
		}
		s.Players = append(s.Players, info)
	}
	for _, sp := range r.spectators {
		s.Spectators = append(s.Spectators, SpectatorInfo{ID: sp.ID, Name: sp.Name})
	}

	if g == nil {
		return s
	}

	s.Paused = g.timer.paused
	s.Round = g.Round
	cat := g.Catastrophe
	s.Catastrophe = &cat
	s.RevealedBunkerCount = g.RevealedBunkerCount
	s.BunkerCards = append([]BunkerCard{}, g.BunkerCards[:g.RevealedBunkerCount]...)
	s.TotalBunkerCards = len(g.BunkerCards)
	s.BunkerCapacity = g.BunkerCapacity
	if g.Threat != nil && (over || g.RevealedBunkerCount >= len(g.BunkerCards)) {
		t := *g.Threat
		s.Threat = &t
	}

	s.CurrentTurnPlayerID = g.currentTurn()
	if rem, ok := g.timer.remainingAt(r.clock.Now()); ok {
		ms := rem.Milliseconds()
		s.TimerRemainingMs = &ms
	}

	if g.Phase.isVoting() {
		for _, p := range r.voters(g) {
			s.EligibleVoters++
			if p.HasVoted {
				s.VotesCast++
			}
		}
	}
	if g.Phase == PhaseRoundVoteTiebreak {
		s.TiebreakCandidates = append([]string(nil), g.TiebreakIDs...)
	}
	if g.Phase == PhaseRoundResult || over {
		s.VoteResults = g.ResultVotes
	}
	if g.Phase == PhaseRoundResult {
		s.EliminatedPlayerID = g.ResultPlayerID
		s.ImmunePlayerID = g.ImmuneSurvivorID
	}
	s.LastEliminatedID = g.LastEliminatedID
	s.EliminationOrder = append([]string{}, g.Eliminated...)

	s.VotingSchedule = append([]int(nil), g.Schedule...)
	s.CurrentVotingInRound = g.VotingInRound
	s.VotingsInCurrentRound = g.votingsThisRound()
	return s
}
