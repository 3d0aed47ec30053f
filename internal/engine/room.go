package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Content is the read-only card catalog a room samples from.
type Content interface {
	Character(rng *rand.Rand, usedProfessions map[string]bool) Character
	Catastrophe(rng *rand.Rand) Catastrophe
	BunkerCards(rng *rand.Rand, n int) []BunkerCard
	ThreatCard(rng *rand.Rand) ThreatCard
	ReplacementBunkerCard(rng *rand.Rand, exclude map[string]bool) (BunkerCard, bool)
}

type Deps struct {
	Scheduler Scheduler
	Clock     Clock
	Rand      *rand.Rand
	Content   Content
	Logger    *zap.Logger
	NewID     func() string

	// OnEmpty fires once when the last human player leaves.
	OnEmpty func()
	// OnGameOver receives the summary of every game that reaches GAME_OVER.
	OnGameOver func(GameSummary)
}

type Player struct {
	ID        string
	Name      string
	Ready     bool
	Connected bool
	Alive     bool
	IsBot     bool

	Character          *Character
	Revealed           []int // attribute indices, in reveal order
	HasVoted           bool
	VotedFor           string
	Immune             bool
	ActionCardRevealed bool

	conn       Conn
	grace      Timer
	graceToken uint64
}

func (p *Player) isRevealed(idx int) bool {
	return slices.Contains(p.Revealed, idx)
}

func (p *Player) hidden() []int {
	if p.Character == nil {
		return nil
	}
	var out []int
	for i := range p.Character.Attributes {
		if !p.isRevealed(i) {
			out = append(out, i)
		}
	}
	return out
}

func (p *Player) resetForLobby() {
	p.Ready = p.IsBot
	p.resetForGame()
}

func (p *Player) resetForGame() {
	p.Alive = true
	p.Character = nil
	p.Revealed = nil
	p.HasVoted = false
	p.VotedFor = ""
	p.Immune = false
	p.ActionCardRevealed = false
}

type Spectator struct {
	ID   string
	Name string
	conn Conn
}

// Membership identifies a seat handed back to the transport layer.
type Membership struct {
	RoomCode  string `json:"roomCode"`
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Spectator bool   `json:"spectator,omitempty"`
}

// Room is one game session. It is not safe for concurrent use: every method,
// and every callback handed to the Scheduler, must run on one goroutine.
type Room struct {
	code       string
	hostID     string
	players    []*Player
	spectators []*Spectator
	game       *GameState

	cfg        Config
	sched      Scheduler
	clock      Clock
	rng        *rand.Rand
	content    Content
	log        *zap.Logger
	newID      func() string
	onEmpty    func()
	onGameOver func(GameSummary)

	bots         botCoordinator
	lastActivity time.Time
	closed       bool
}

func NewRoom(code string, cfg Config, deps Deps) *Room {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	r := &Room{
		code:       code,
		cfg:        cfg,
		sched:      deps.Scheduler,
		clock:      deps.Clock,
		rng:        deps.Rand,
		content:    deps.Content,
		log:        deps.Logger.With(zap.String("room", code)),
		newID:      deps.NewID,
		onEmpty:    deps.OnEmpty,
		onGameOver: deps.OnGameOver,
	}
	r.lastActivity = r.clock.Now()
	return r
}

func (r *Room) Code() string            { return r.code }
func (r *Room) HostID() string          { return r.hostID }
func (r *Room) LastActivity() time.Time { return r.lastActivity }
func (r *Room) Closed() bool            { return r.closed }

func (r *Room) Phase() Phase {
	if r.game == nil {
		return PhaseLobby
	}
	return r.game.Phase
}

func (r *Room) PlayerCount() int { return len(r.players) }

func (r *Room) Player(id string) (*Player, bool) {
	p := r.player(id)
	return p, p != nil
}

func (r *Room) player(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) spectator(id string) *Spectator {
	for _, s := range r.spectators {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (r *Room) humans() int {
	n := 0
	for _, p := range r.players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

func (r *Room) alivePlayers() []*Player {
	var out []*Player
	for _, p := range r.players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) aliveIDs() []string {
	var out []string
	for _, p := range r.players {
		if p.Alive {
			out = append(out, p.ID)
		}
	}
	return out
}

func (r *Room) requireOpen() error {
	if r.closed {
		return ErrRoomClosed
	}
	return nil
}

func (r *Room) requireHost(actorID string) error {
	if err := r.requireOpen(); err != nil {
		return err
	}
	if r.player(actorID) == nil {
		return ErrPlayerNotFound
	}
	if actorID != r.hostID {
		return ErrNotHost
	}
	return nil
}

// Join seats a new player. Only possible while the room is in its lobby.
func (r *Room) Join(name string, conn Conn) (Membership, error) {
	if err := r.requireOpen(); err != nil {
		return Membership{}, err
	}
	name, err := NormalizeName(name, r.cfg.MaxNameLength)
	if err != nil {
		return Membership{}, err
	}
	if r.game != nil {
		return Membership{}, ErrGameAlreadyStarted
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		return Membership{}, ErrRoomFull
	}

	p := &Player{
		ID:        r.newID(),
		Name:      name,
		Connected: true,
		Alive:     true,
		conn:      conn,
	}
	r.players = append(r.players, p)
	if r.hostID == "" {
		r.hostID = p.ID
	}
	r.log.Info("player joined", zap.String("player", p.ID), zap.String("name", name))
	r.broadcast()
	return Membership{RoomCode: r.code, PlayerID: p.ID, Name: p.Name}, nil
}

// Spectate admits a watcher in any phase.
func (r *Room) Spectate(name string, conn Conn) (Membership, error) {
	if err := r.requireOpen(); err != nil {
		return Membership{}, err
	}
	name, err := NormalizeName(name, r.cfg.MaxNameLength)
	if err != nil {
		return Membership{}, err
	}
	s := &Spectator{ID: r.newID(), Name: name, conn: conn}
	r.spectators = append(r.spectators, s)
	r.log.Debug("spectator joined", zap.String("spectator", s.ID))
	r.broadcast()
	return Membership{RoomCode: r.code, PlayerID: s.ID, Name: s.Name, Spectator: true}, nil
}

// Rejoin binds conn to an existing player without touching game progress.
func (r *Room) Rejoin(playerID string, conn Conn) (Membership, error) {
	if err := r.requireOpen(); err != nil {
		return Membership{}, err
	}
	p := r.player(playerID)
	if p == nil || p.IsBot {
		return Membership{}, ErrPlayerNotFound
	}
	p.conn = conn
	p.Connected = true
	p.graceToken++
	if p.grace != nil {
		p.grace.Stop()
		p.grace = nil
	}
	r.log.Info("player rejoined", zap.String("player", p.ID))
	if p.Character != nil {
		r.sendCharacter(p)
	}
	r.broadcast()
	return Membership{RoomCode: r.code, PlayerID: p.ID, Name: p.Name}, nil
}

// Leave removes a player or spectator right away.
func (r *Room) Leave(id string) error {
	if err := r.requireOpen(); err != nil {
		return err
	}
	if s := r.spectator(id); s != nil {
		r.removeSpectator(s)
		r.broadcast()
		return nil
	}
	p := r.player(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	r.removePlayer(p)
	return nil
}

// Bound reports whether conn is still the live handle of player or spectator
// id. A rejoin from another socket rebinds the seat.
func (r *Room) Bound(id string, conn Conn) bool {
	if s := r.spectator(id); s != nil {
		return s.conn == conn
	}
	p := r.player(id)
	return p != nil && p.conn != nil && p.conn == conn
}

// Disconnect reports that conn dropped. A player keeps their seat for the
// reconnect grace period; a spectator is removed. Stale handles are ignored.
func (r *Room) Disconnect(id string, conn Conn) {
	if r.closed {
		return
	}
	if s := r.spectator(id); s != nil {
		if s.conn == conn {
			r.removeSpectator(s)
			r.broadcast()
		}
		return
	}
	p := r.player(id)
	if p == nil || p.IsBot || p.conn != conn {
		return
	}
	p.Connected = false
	p.conn = nil
	r.startGrace(p)
	r.log.Info("player disconnected", zap.String("player", p.ID), zap.Duration("grace", r.cfg.ReconnectGrace))
	r.broadcast()
}

func (r *Room) startGrace(p *Player) {
	p.graceToken++
	tok := p.graceToken
	if p.grace != nil {
		p.grace.Stop()
	}
	p.grace = r.sched.AfterFunc(r.cfg.ReconnectGrace, func() {
		if r.closed || p.graceToken != tok || p.Connected || r.player(p.ID) != p {
			return
		}
		r.log.Info("grace period elapsed", zap.String("player", p.ID))
		r.removePlayer(p)
	})
}

func (r *Room) removeSpectator(s *Spectator) {
	r.spectators = slices.DeleteFunc(r.spectators, func(x *Spectator) bool { return x == s })
}

// removePlayer drops p, finishing their reveal turn first if it is theirs.
func (r *Room) removePlayer(p *Player) {
	if g := r.game; g != nil && g.Phase == PhaseRoundReveal && g.currentTurn() == p.ID {
		r.revealTurn(g, p, nil)
	}

	p.graceToken++
	if p.grace != nil {
		p.grace.Stop()
		p.grace = nil
	}
	r.players = slices.DeleteFunc(r.players, func(x *Player) bool { return x == p })
	r.log.Info("player removed", zap.String("player", p.ID))

	if r.hostID == p.ID {
		r.hostID = ""
		for _, next := range r.players {
			if !next.IsBot {
				r.hostID = next.ID
				r.log.Info("host promoted", zap.String("player", next.ID))
				break
			}
		}
	}

	if r.humans() == 0 {
		r.Close()
		if r.onEmpty != nil {
			r.onEmpty()
		}
		return
	}

	if g := r.game; g != nil {
		r.forgetPlayer(g, p.ID)
		if r.game != g || r.settle(g) {
			return
		}
	}
	r.broadcast()
}

// forgetPlayer scrubs id from the per-game bookkeeping.
func (r *Room) forgetPlayer(g *GameState, id string) {
	g.dropFromTurnOrder(id)
	delete(g.Votes, id)
	g.TiebreakIDs = slices.DeleteFunc(g.TiebreakIDs, func(x string) bool { return x == id })
	if g.LastEliminatedID == id {
		g.LastEliminatedID = ""
	}
}

// Close cancels every pending timer. The room is unusable afterwards.
func (r *Room) Close() {
	if r.closed {
		return
	}
	r.closed = true
	if r.game != nil {
		r.game.timer.cancel()
	}
	r.bots.cancel()
	for _, p := range r.players {
		p.graceToken++
		if p.grace != nil {
			p.grace.Stop()
			p.grace = nil
		}
	}
	r.log.Debug("room closed")
}

// SetReady toggles a player's lobby ready flag.
func (r *Room) SetReady(playerID string, ready bool) error {
	if err := r.requireOpen(); err != nil {
		return err
	}
	p := r.player(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if r.game != nil {
		return ErrGameAlreadyStarted
	}
	p.Ready = ready
	r.broadcast()
	return nil
}

var botNames = []string{
	"Alex", "Maria", "Dmitri", "Elena", "Sergei", "Anna", "Ivan", "Olga",
	"Andrei", "Natalia", "Mikhail", "Katya", "Pavel", "Tatiana", "Nikolai",
	"Svetlana", "Vladimir", "Irina", "Artem", "Julia", "Roman", "Victoria",
	"Maxim", "Ksenia", "Denis", "Marina", "Kirill", "Daria",
}

// AddBot seats a bot player. Lobby only.
func (r *Room) AddBot(actorID string) (Membership, error) {
	if err := r.requireHost(actorID); err != nil {
		return Membership{}, err
	}
	if r.game != nil {
		return Membership{}, ErrGameAlreadyStarted
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		return Membership{}, ErrRoomFull
	}

	used := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		used[p.Name] = true
	}
	var available []string
	for _, n := range botNames {
		if !used[n] {
			available = append(available, n)
		}
	}
	name := fmt.Sprintf("Bot %d", len(r.players)+1)
	if len(available) > 0 {
		name = available[r.rng.IntN(len(available))]
	}

	p := &Player{
		ID:        r.newID(),
		Name:      name,
		Ready:     true,
		Connected: true,
		Alive:     true,
		IsBot:     true,
	}
	r.players = append(r.players, p)
	r.log.Info("bot added", zap.String("player", p.ID), zap.String("name", name))
	r.broadcast()
	return Membership{RoomCode: r.code, PlayerID: p.ID, Name: p.Name}, nil
}

// RemoveBot removes a bot player. Lobby only.
func (r *Room) RemoveBot(actorID, botID string) error {
	if err := r.requireHost(actorID); err != nil {
		return err
	}
	p := r.player(botID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.IsBot {
		return ErrNotABot
	}
	if r.game != nil {
		return ErrGameAlreadyStarted
	}
	r.removePlayer(p)
	return nil
}

// broadcast pushes the public snapshot to everyone, refreshes the activity
// clock and re-arms bot decisions for the new state.
func (r *Room) broadcast() {
	if r.closed {
		return
	}
	evt := Event{Type: EvtState, Payload: r.Snapshot()}
	r.emit(evt)
	r.lastActivity = r.clock.Now()
	r.scheduleBots()
}

// emit sends evt to every open connection in the room.
func (r *Room) emit(evt Event) {
	for _, p := range r.players {
		r.send(p.conn, evt)
	}
	for _, s := range r.spectators {
		r.send(s.conn, evt)
	}
}

func (r *Room) send(conn Conn, evt Event) {
	if conn == nil || !conn.IsOpen() {
		return
	}
	if err := conn.Send(evt); err != nil {
		r.log.Debug("send failed", zap.String("event", string(evt.Type)), zap.Error(err))
	}
}

func (r *Room) sendCharacter(p *Player) {
	if p.Character == nil {
		return
	}
	r.send(p.conn, Event{Type: EvtCharacter, Payload: *p.Character.clone()})
}
