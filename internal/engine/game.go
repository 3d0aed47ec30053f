package engine

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// GameState is the per-game half of a Room. It is dropped on reset.
type GameState struct {
	Phase               Phase
	Round               int
	Catastrophe         Catastrophe
	BunkerCards         []BunkerCard
	RevealedBunkerCount int
	Threat              *ThreatCard
	BunkerCapacity      int

	TurnOrder []string
	TurnIndex int

	Votes            map[string]string // voter -> target
	Eliminated       []string
	Schedule         []int
	VotingInRound    int
	LastEliminatedID string
	TiebreakIDs      []string

	// ResultPlayerID is who left during the current ROUND_RESULT; empty when
	// the vote was absorbed by immunity (ImmuneSurvivorID is then set).
	ResultPlayerID   string
	ImmuneSurvivorID string
	ResultVotes      map[string]int

	timer *phaseTimer
}

func (g *GameState) currentTurn() string {
	if g.Phase != PhaseRoundReveal || g.TurnIndex >= len(g.TurnOrder) {
		return ""
	}
	return g.TurnOrder[g.TurnIndex]
}

func (g *GameState) dropFromTurnOrder(id string) {
	i := slices.Index(g.TurnOrder, id)
	if i < 0 {
		return
	}
	g.TurnOrder = slices.Delete(g.TurnOrder, i, i+1)
	if i < g.TurnIndex {
		g.TurnIndex--
	}
}

func (g *GameState) votingsThisRound() int {
	if g.Round < 1 || g.Round > len(g.Schedule) {
		return 0
	}
	return g.Schedule[g.Round-1]
}

type SummaryPlayer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsBot    bool   `json:"isBot"`
	Survived bool   `json:"survived"`
}

// GameSummary describes a finished game.
type GameSummary struct {
	RoomCode         string          `json:"roomCode"`
	Catastrophe      string          `json:"catastrophe"`
	Rounds           int             `json:"rounds"`
	BunkerCapacity   int             `json:"bunkerCapacity"`
	Players          []SummaryPlayer `json:"players"`
	EliminationOrder []string        `json:"eliminationOrder"`
	EndedAt          time.Time       `json:"endedAt"`
}

// guard wraps a timer continuation so it no-ops once g is no longer the
// room's live game.
func (r *Room) guard(g *GameState, fn func()) func() {
	return func() {
		if r.closed || r.game != g {
			r.log.Debug("stale timer ignored")
			return
		}
		fn()
	}
}

func (r *Room) requireGame() (*GameState, error) {
	if err := r.requireOpen(); err != nil {
		return nil, err
	}
	if r.game == nil {
		return nil, ErrGameNotStarted
	}
	return r.game, nil
}

func (r *Room) setPhase(g *GameState, p Phase) {
	g.Phase = p
	r.log.Debug("phase", zap.String("phase", string(p)), zap.Int("round", g.Round))
}

// StartGame deals characters and leaves the lobby. Host only; every
// non-host player must be ready.
func (r *Room) StartGame(actorID string) error {
	if err := r.requireHost(actorID); err != nil {
		return err
	}
	if r.game != nil {
		return ErrGameAlreadyStarted
	}
	n := len(r.players)
	if n < r.cfg.MinPlayers {
		return ErrMinPlayers
	}
	if n > r.cfg.MaxPlayers {
		return ErrRoomFull
	}
	for _, p := range r.players {
		if p.ID != r.hostID && !p.Ready {
			return ErrNotAllReady
		}
	}

	g := &GameState{
		Phase:          PhaseCatastropheReveal,
		Catastrophe:    r.content.Catastrophe(r.rng),
		BunkerCards:    r.content.BunkerCards(r.rng, BunkerCardCount(n)),
		BunkerCapacity: BunkerCapacity(n),
		Votes:          make(map[string]string),
		Schedule:       VotingSchedule(n, r.cfg.TotalRounds),
		timer:          newPhaseTimer(r.sched, r.clock),
	}
	if HasThreatCard(n) {
		t := r.content.ThreatCard(r.rng)
		g.Threat = &t
	}

	used := make(map[string]bool, n)
	for _, p := range r.players {
		p.resetForGame()
		c := r.content.Character(r.rng, used)
		if i := c.indexOf(AttrProfession); i >= 0 {
			used[c.Attributes[i].Value] = true
		}
		p.Character = &c
	}
	r.game = g
	r.log.Info("game started", zap.Int("players", n), zap.Ints("schedule", g.Schedule))

	for _, p := range r.players {
		r.sendCharacter(p)
	}
	g.timer.schedule(r.cfg.CatastropheReveal, r.guard(g, func() { r.startRound(g) }))
	r.broadcast()
	return nil
}

func (r *Room) startRound(g *GameState) {
	g.Round++
	g.VotingInRound = 0
	r.exploreBunker(g)
}

func (r *Room) exploreBunker(g *GameState) {
	if g.RevealedBunkerCount >= len(g.BunkerCards) {
		r.startReveal(g)
		return
	}
	g.RevealedBunkerCount++
	r.setPhase(g, PhaseBunkerExplore)
	g.timer.schedule(r.cfg.BunkerExplore, r.guard(g, func() { r.startReveal(g) }))
	r.broadcast()
}

func (r *Room) startReveal(g *GameState) {
	r.setPhase(g, PhaseRoundReveal)
	g.TurnOrder = r.aliveIDs()
	g.TurnIndex = 0
	g.TiebreakIDs = nil
	if len(g.TurnOrder) == 0 {
		r.afterReveal(g)
		return
	}
	r.broadcast()
}

// RevealAttribute reveals one of the caller's attributes on their turn.
// index is ignored in round 1; a nil, out of range or already revealed index
// falls back to the first hidden attribute.
func (r *Room) RevealAttribute(actorID string, index *int) error {
	g, err := r.requireGame()
	if err != nil {
		return err
	}
	if g.Phase != PhaseRoundReveal {
		return ErrWrongPhase
	}
	p := r.player(actorID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.Alive {
		return ErrPlayerEliminated
	}
	if g.currentTurn() != actorID {
		return ErrWrongTurn
	}
	r.revealTurn(g, p, index)
	return nil
}

// revealTurn completes p's turn. With one hidden attribute left the turn is
// skipped without revealing anything.
func (r *Room) revealTurn(g *GameState, p *Player, index *int) {
	hidden := p.hidden()
	if len(hidden) > 1 {
		idx := hidden[0]
		switch {
		case g.Round == 1:
			if i := p.Character.indexOf(AttrProfession); i >= 0 && !p.isRevealed(i) {
				idx = i
			}
		case index != nil && *index >= 0 && *index < len(p.Character.Attributes) && !p.isRevealed(*index):
			idx = *index
		}
		p.Revealed = append(p.Revealed, idx)
		r.emit(Event{Type: EvtAttributeRevealed, Payload: AttributeRevealedPayload{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Attribute:  p.Character.Attributes[idx],
		}})
	} else {
		r.log.Debug("reveal turn skipped", zap.String("player", p.ID))
	}
	r.advanceTurn(g)
}

func (r *Room) advanceTurn(g *GameState) {
	g.TurnIndex++
	if g.TurnIndex >= len(g.TurnOrder) {
		r.afterReveal(g)
		return
	}
	r.broadcast()
}

func (r *Room) afterReveal(g *GameState) {
	if len(r.aliveIDs()) <= g.BunkerCapacity {
		r.gameOver(g)
		return
	}
	if g.votingsThisRound() > 0 {
		r.startDiscussion(g)
		return
	}
	r.advanceOrEnd(g)
}

func (r *Room) startDiscussion(g *GameState) {
	r.setPhase(g, PhaseRoundDiscussion)
	r.clearResult(g)
	g.timer.schedule(r.cfg.Discussion, r.guard(g, func() { r.startVote(g) }))
	r.broadcast()
}

func (r *Room) clearResult(g *GameState) {
	g.ResultPlayerID = ""
	g.ImmuneSurvivorID = ""
	g.ResultVotes = nil
}

func (r *Room) resetVotes(g *GameState) {
	g.Votes = make(map[string]string)
	for _, p := range r.players {
		p.HasVoted = false
		p.VotedFor = ""
	}
}

func (r *Room) startVote(g *GameState) {
	r.setPhase(g, PhaseRoundVote)
	g.TiebreakIDs = nil
	r.clearResult(g)
	r.resetVotes(g)
	g.timer.schedule(r.cfg.Vote, r.guard(g, func() { r.tally(g) }))
	r.broadcast()
}

// eligible reports whether p may vote: alive, or the last player eliminated.
func (r *Room) eligible(g *GameState, p *Player) bool {
	return p.Alive || (g.LastEliminatedID != "" && p.ID == g.LastEliminatedID)
}

func (r *Room) voters(g *GameState) []*Player {
	var out []*Player
	for _, p := range r.players {
		if r.eligible(g, p) {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) allVoted(g *GameState) bool {
	vs := r.voters(g)
	if len(vs) == 0 {
		return false
	}
	for _, p := range vs {
		if !p.HasVoted {
			return false
		}
	}
	return true
}

// CastVote records voterID's vote. The phase ends early once every eligible
// voter has voted.
func (r *Room) CastVote(voterID, targetID string) error {
	g, err := r.requireGame()
	if err != nil {
		return err
	}
	if !g.Phase.isVoting() {
		return ErrWrongPhase
	}
	voter := r.player(voterID)
	if voter == nil {
		return ErrPlayerNotFound
	}
	target := r.player(targetID)
	if target == nil {
		return ErrPlayerNotFound
	}
	if voterID == targetID || !target.Alive {
		return ErrInvalidTarget
	}
	if !r.eligible(g, voter) {
		return ErrNotEligible
	}
	if voter.HasVoted {
		return ErrAlreadyVoted
	}
	if g.Phase == PhaseRoundVoteTiebreak && !slices.Contains(g.TiebreakIDs, targetID) {
		return ErrInvalidTarget
	}

	g.Votes[voterID] = targetID
	voter.HasVoted = true
	voter.VotedFor = targetID

	if r.allVoted(g) {
		g.timer.cancel()
		r.tally(g)
		return nil
	}
	r.broadcast()
	return nil
}

func (r *Room) tally(g *GameState) {
	tiebreak := g.Phase == PhaseRoundVoteTiebreak
	candidates := r.aliveIDs()
	if tiebreak {
		candidates = slices.DeleteFunc(slices.Clone(g.TiebreakIDs), func(id string) bool {
			p := r.player(id)
			return p == nil || !p.Alive
		})
	}
	t := CountVotes(g.Votes, candidates)
	g.ResultVotes = t.Counts

	outcome, target, tied := Resolve(t, tiebreak, r.rng)
	r.log.Debug("tally", zap.Any("counts", t.Counts), zap.Int("outcome", int(outcome)))
	switch outcome {
	case OutcomeEliminate:
		r.eliminate(g, target)
	case OutcomeTiebreak:
		r.startTiebreak(g, tied)
	default:
		r.afterVoting(g)
	}
}

// startTiebreak narrows the vote to ids. Votes are accepted from the start of
// the defense interval; the re-vote timer follows it.
func (r *Room) startTiebreak(g *GameState, ids []string) {
	r.setPhase(g, PhaseRoundVoteTiebreak)
	g.TiebreakIDs = ids
	r.resetVotes(g)
	g.timer.schedule(r.cfg.TiebreakDefense, r.guard(g, func() {
		g.timer.schedule(r.cfg.Vote, r.guard(g, func() { r.tally(g) }))
		r.broadcast()
	}))
	r.broadcast()
}

func (r *Room) clearImmunity() {
	for _, p := range r.players {
		p.Immune = false
	}
}

func (r *Room) eliminate(g *GameState, id string) {
	p := r.player(id)
	if p == nil {
		r.afterVoting(g)
		return
	}
	g.TiebreakIDs = nil
	r.setPhase(g, PhaseRoundResult)
	if p.Immune {
		g.ImmuneSurvivorID = id
		r.clearImmunity()
		r.log.Info("vote absorbed by immunity", zap.String("player", id))
	} else {
		r.markEliminated(g, p)
		g.ResultPlayerID = id
		r.clearImmunity()
	}
	g.timer.schedule(r.cfg.ResultDisplay, r.guard(g, func() { r.afterVoting(g) }))
	r.broadcast()
}

func (r *Room) markEliminated(g *GameState, p *Player) {
	p.Alive = false
	g.Eliminated = append(g.Eliminated, p.ID)
	g.LastEliminatedID = p.ID
	r.log.Info("player eliminated", zap.String("player", p.ID))
	r.emit(Event{Type: EvtPlayerEliminated, Payload: EliminatedPayload{PlayerID: p.ID, PlayerName: p.Name}})
}

func (r *Room) afterVoting(g *GameState) {
	g.VotingInRound++
	switch {
	case len(r.aliveIDs()) <= g.BunkerCapacity:
		r.gameOver(g)
	case g.VotingInRound < g.votingsThisRound():
		r.startDiscussion(g)
	default:
		r.advanceOrEnd(g)
	}
}

func (r *Room) advanceOrEnd(g *GameState) {
	if g.Round >= r.cfg.TotalRounds || len(r.aliveIDs()) <= g.BunkerCapacity {
		r.gameOver(g)
		return
	}
	r.startRound(g)
}

func (r *Room) gameOver(g *GameState) {
	g.timer.cancel()
	g.timer.paused = false
	g.TiebreakIDs = nil
	r.setPhase(g, PhaseGameOver)

	summary := r.summary(g)
	r.log.Info("game over", zap.Int("survivors", len(r.aliveIDs())), zap.Int("rounds", g.Round))
	r.emit(Event{Type: EvtGameOver, Payload: summary})
	r.broadcast()
	if r.onGameOver != nil {
		r.onGameOver(summary)
	}
}

func (r *Room) summary(g *GameState) GameSummary {
	s := GameSummary{
		RoomCode:         r.code,
		Catastrophe:      g.Catastrophe.Title,
		Rounds:           g.Round,
		BunkerCapacity:   g.BunkerCapacity,
		EliminationOrder: slices.Clone(g.Eliminated),
		EndedAt:          r.clock.Now(),
	}
	for _, p := range r.players {
		s.Players = append(s.Players, SummaryPlayer{ID: p.ID, Name: p.Name, IsBot: p.IsBot, Survived: p.Alive})
	}
	return s
}

// settle finishes a phase whose completion condition was met by a
// membership change. It reports whether it broadcast.
func (r *Room) settle(g *GameState) bool {
	switch {
	case g.Phase == PhaseRoundReveal && g.TurnIndex >= len(g.TurnOrder):
		r.afterReveal(g)
		return true
	case g.Phase.isVoting() && r.allVoted(g):
		g.timer.cancel()
		r.tally(g)
		return true
	}
	return false
}

// RevealActionCard makes the caller's action card public. Once per game.
func (r *Room) RevealActionCard(actorID string) error {
	g, err := r.requireGame()
	if err != nil {
		return err
	}
	p := r.player(actorID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.Character == nil {
		return ErrGameNotStarted
	}
	if p.ActionCardRevealed {
		return ErrAlreadyRevealed
	}
	if g.Phase == PhaseGameOver {
		return ErrWrongPhase
	}
	p.ActionCardRevealed = true
	r.emit(Event{Type: EvtActionCardRevealed, Payload: ActionCardRevealedPayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		ActionCard: p.Character.ActionCard,
	}})
	r.broadcast()
	return nil
}

// EndGame forces GAME_OVER. Host only.
func (r *Room) EndGame(actorID string) error {
	if err := r.requireHost(actorID); err != nil {
		return err
	}
	g, err := r.requireGame()
	if err != nil {
		return err
	}
	if g.Phase == PhaseGameOver {
		return ErrWrongPhase
	}
	r.log.Info("game ended by host")
	r.gameOver(g)
	return nil
}

// Reset drops the game and returns every player to the lobby. Host only.
func (r *Room) Reset(actorID string) error {
	if err := r.requireHost(actorID); err != nil {
		return err
	}
	if r.game != nil {
		r.game.timer.cancel()
	}
	r.game = nil
	r.bots.cancel()
	for _, p := range r.players {
		p.resetForLobby()
	}
	r.log.Info("room reset")
	r.broadcast()
	return nil
}

// Pause freezes the phase timer. Host only; requires a running timer.
func (r *Room) Pause(actorID string) error {
	if err := r.requireHost(actorID); err != nil {
		return err
	}
	g, err := r.requireGame()
	if err != nil {
		return err
	}
	if err := g.timer.pause(); err != nil {
		return err
	}
	r.log.Info("game paused")
	r.broadcast()
	return nil
}

// Unpause re-arms the frozen timer with its captured remainder.
func (r *Room) Unpause(actorID string) error {
	if err := r.requireHost(actorID); err != nil {
		return err
	}
	g, err := r.requireGame()
	if err != nil {
		return err
	}
	if err := g.timer.resume(); err != nil {
		return err
	}
	r.log.Info("game unpaused")
	r.broadcast()
	return nil
}

// SkipDiscussion jumps straight to the vote. Host only.
func (r *Room) SkipDiscussion(actorID string) error {
	if err := r.requireHost(actorID); err != nil {
		return err
	}
	g, err := r.requireGame()
	if err != nil {
		return err
	}
	if g.Phase != PhaseRoundDiscussion {
		return ErrWrongPhase
	}
	g.timer.cancel()
	r.startVote(g)
	return nil
}
