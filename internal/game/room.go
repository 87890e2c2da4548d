// internal/game/room.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ponza-art/deployed-game-backend/internal/auth"
	"github.com/ponza-art/deployed-game-backend/internal/database"
	"github.com/ponza-art/deployed-game-backend/internal/history"
	"github.com/ponza-art/deployed-game-backend/internal/models"
)

// Room is the state machine for a single game instance: player roster, turn
// order, board, round bookkeeping and timers. Every transition — external
// action or timer expiry — runs under Mu, so transitions are atomic per
// room. Rooms share no state with each other.
//
// Lifecycle: Lobby (players join) → InRound ⇄ RoundEnd → GameEnd (terminal).
type Room struct {
	ID       string
	IsPublic bool

	rules        Rules
	passwordHash []byte // bcrypt; empty means the room is open

	players      map[uuid.UUID]*models.Player
	turnOrder    []uuid.UUID // insertion order, defines rotation
	currentTurn  uuid.UUID
	turnCounter  int
	currentRound int
	roundWinners []uuid.UUID
	winner       uuid.UUID
	hostID       uuid.UUID
	started      bool
	ended        bool

	board []int
	deck  *Deck

	turnTimer  *countdown
	roundTimer *countdown

	// tickInterval maps one timer unit to wall time. Tests shorten it.
	tickInterval  time.Duration
	autoplayDelay time.Duration

	actionIndex int

	Mu  sync.Mutex
	log *logrus.Entry

	// Communication callbacks, owned by the transport collaborator.
	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnGameEnd           func(roomID string, winner uuid.UUID, scores map[uuid.UUID]int)

	history *history.Publisher
	results *database.Store
}

// NewRoom creates an empty room in the Lobby state. passwordHash may be nil
// for open rooms. The seed drives the room's deck and all in-room
// randomness.
func NewRoom(id string, isPublic bool, passwordHash []byte, rules Rules, seed uint64) *Room {
	return &Room{
		ID:            id,
		IsPublic:      isPublic,
		rules:         rules,
		passwordHash:  passwordHash,
		players:       make(map[uuid.UUID]*models.Player),
		currentRound:  1,
		board:         NewBoard(rules.BoardSize),
		deck:          NewDeck(DefaultCatalog(), seed),
		tickInterval:  time.Second,
		autoplayDelay: time.Second,
		log:           logrus.WithField("room", id),
	}
}

// SetHistory attaches the async action historian. Nil-safe.
func (r *Room) SetHistory(h *history.Publisher) { r.history = h }

// SetResults attaches the optional final-result store. Nil-safe.
func (r *Room) SetResults(s *database.Store) { r.results = s }

// Rules returns a copy of the room's rules.
func (r *Room) Rules() Rules { return r.rules }

// AddPlayer admits a player to the lobby, deals their initial hand and
// appends them to the turn rotation. The first joiner becomes host. With
// AutoStart enabled the game begins the moment MinPlayers are present.
func (r *Room) AddPlayer(playerID uuid.UUID, username, password string) (*Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.started {
		return nil, ErrGameStarted
	}
	if len(r.players) >= r.rules.MaxPlayers {
		return nil, ErrRoomFull
	}
	if len(r.passwordHash) > 0 && !auth.CheckPassword(r.passwordHash, password) {
		return nil, ErrInvalidPassword
	}
	if _, exists := r.players[playerID]; exists {
		return nil, ErrDuplicatePlayer
	}

	p := &models.Player{
		ID:        playerID,
		Username:  username,
		Position:  r.board[0],
		Hand:      r.deck.DrawN(r.rules.HandSize),
		Connected: true,
	}
	if len(r.players) == 0 {
		p.IsHost = true
		r.hostID = playerID
		r.currentTurn = playerID
	}
	r.players[playerID] = p
	r.turnOrder = append(r.turnOrder, playerID)

	r.log.WithFields(logrus.Fields{"player": playerID, "username": username}).Info("player joined")
	r.logActionLocked(playerID, "player_joined", map[string]interface{}{"username": username})
	r.fireEvent(GameEvent{
		Type:   EventPlayerJoined,
		Player: &EventPlayer{ID: playerID, Username: username},
	})

	if r.rules.AutoStart && len(r.players) >= r.rules.MinPlayers {
		r.startGameLocked()
	}

	r.broadcastStateLocked()
	return r.snapshotLocked(playerID), nil
}

// StartGame begins the game. Host-only, Lobby-only, requires MinPlayers.
func (r *Room) StartGame(playerID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.started {
		return ErrGameStarted
	}
	if playerID != r.hostID {
		return ErrNotHost
	}
	if len(r.players) < r.rules.MinPlayers {
		return ErrNotEnoughPlayers
	}
	r.startGameLocked()
	r.broadcastStateLocked()
	return nil
}

// startGameLocked performs the Lobby → InRound transition exactly once.
// Assumes lock is held by caller.
func (r *Room) startGameLocked() {
	if r.started {
		return
	}
	r.started = true
	r.currentRound = 1
	for _, p := range r.players {
		p.Position = r.board[0]
	}
	r.log.WithField("players", len(r.players)).Info("game started")
	r.logActionLocked(r.hostID, "game_started", map[string]interface{}{"players": len(r.players)})
	r.fireEvent(GameEvent{Type: EventGameStarted})

	r.startRoundTimerLocked()
	r.startTurnTimerLocked()
	r.announceTurnLocked()
}

// PlayCard validates and resolves a card play for the acting player. The
// synthesized moves of automated players go through this same path.
func (r *Room) PlayCard(playerID uuid.UUID, cardIndex int, targetID uuid.UUID, dir models.Direction) (*PlayResult, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.playCardLocked(playerID, cardIndex, targetID, dir)
}

// playCardLocked implements PlayCard.
// Assumes lock is held by caller.
func (r *Room) playCardLocked(playerID uuid.UUID, cardIndex int, targetID uuid.UUID, dir models.Direction) (*PlayResult, error) {
	if r.ended || r.winner != uuid.Nil {
		return nil, ErrGameEnded
	}
	if !r.started {
		return nil, ErrGameNotStarted
	}
	if r.currentTurn != playerID {
		return nil, ErrNotYourTurn
	}
	actor, ok := r.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}

	// A pending skip flag is consumed instead of resolving any card; the
	// turn passes on so play is not blocked.
	if actor.SkipNextTurn {
		actor.SkipNextTurn = false
		r.logActionLocked(playerID, "turn_skipped", nil)
		r.fireEvent(GameEvent{
			Type:   EventTurnSkipped,
			Player: &EventPlayer{ID: playerID, Username: actor.Username},
		})
		r.endTurnLocked()
		r.broadcastStateLocked()
		return nil, ErrTurnSkipped
	}

	if cardIndex < 0 || cardIndex >= len(actor.Hand) {
		return nil, ErrInvalidCardIndex
	}
	card := actor.Hand[cardIndex]

	var target *models.Player
	if card.RequiresTarget() {
		if targetID == uuid.Nil {
			return nil, ErrTargetRequired
		}
		if targetID == playerID {
			return nil, ErrInvalidTarget
		}
		target, ok = r.players[targetID]
		if !ok {
			return nil, ErrInvalidTarget
		}
	}

	message, err := r.resolveCardLocked(actor, card, target, dir)
	if err != nil {
		return nil, err
	}

	// Remove the played card and replenish the hand.
	actor.Hand = append(actor.Hand[:cardIndex], actor.Hand[cardIndex+1:]...)
	actor.Hand = append(actor.Hand, r.deck.Draw())

	r.logActionLocked(playerID, "card_played", map[string]interface{}{
		"kind":   string(card.Kind),
		"effect": string(card.Effect),
		"value":  card.Value,
	})
	ev := GameEvent{
		Type:    EventCardPlayed,
		Player:  &EventPlayer{ID: playerID, Username: actor.Username},
		Card:    &card,
		Message: message,
	}
	if target != nil {
		ev.Target = &EventPlayer{ID: target.ID, Username: target.Username}
	}
	r.fireEvent(ev)

	// Reaching the terminal marker ends the round; otherwise play passes.
	if actor.Position == r.board[len(r.board)-1] {
		r.endRoundLocked()
	} else {
		r.endTurnLocked()
	}
	r.broadcastStateLocked()

	return &PlayResult{Message: message, PlayedCard: card}, nil
}

// endTurnLocked advances the rotation to the next eligible player. Departed
// ids are pruned first. A player whose skip flag is set is passed over once
// with the flag cleared; if every remaining player is blocked the rotation
// stops at the first player visited twice, so the loop is bounded by
// len(turnOrder)+1 steps.
// Assumes lock is held by caller.
func (r *Room) endTurnLocked() {
	r.pruneTurnOrderLocked()
	if len(r.turnOrder) == 0 || r.ended {
		return
	}

	idx := r.turnIndexLocked(r.currentTurn)
	var first uuid.UUID
	for step := 0; step <= len(r.turnOrder); step++ {
		idx = (idx + 1) % len(r.turnOrder)
		cand := r.turnOrder[idx]
		if first == uuid.Nil {
			first = cand
		} else if cand == first {
			r.currentTurn = cand
			break
		}
		p := r.players[cand]
		if p.SkipNextTurn {
			p.SkipNextTurn = false
			r.fireEvent(GameEvent{
				Type:   EventTurnSkipped,
				Player: &EventPlayer{ID: cand, Username: p.Username},
			})
			continue
		}
		r.currentTurn = cand
		break
	}
	r.turnCounter++

	r.startTurnTimerLocked()
	r.announceTurnLocked()
}

// announceTurnLocked broadcasts whose turn it is and arms autoplay when the
// current player is automated.
// Assumes lock is held by caller.
func (r *Room) announceTurnLocked() {
	if !r.started || r.ended {
		return
	}
	p, ok := r.players[r.currentTurn]
	if !ok {
		return
	}
	r.fireEvent(GameEvent{
		Type:    EventTurnStarted,
		Player:  &EventPlayer{ID: p.ID, Username: p.Username},
		Payload: map[string]interface{}{"turn": r.turnCounter},
	})
	if p.IsAutomated {
		r.scheduleAutoplayLocked(p.ID)
	}
}

// endRoundLocked awards the round to the most advanced player and either
// starts the next round or ends the game. Ties resolve to the earliest
// player in turn order — stable, but arbitrary among exact ties.
// Assumes lock is held by caller.
func (r *Room) endRoundLocked() {
	if r.ended {
		return
	}

	var roundWinner *models.Player
	for _, id := range r.turnOrder {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		if roundWinner == nil || r.markerIndexLocked(p.Position) > r.markerIndexLocked(roundWinner.Position) {
			roundWinner = p
		}
	}
	if roundWinner == nil {
		return
	}

	roundWinner.RoundWins++
	roundWinner.Score += r.rules.WinningPoints
	r.roundWinners = append(r.roundWinners, roundWinner.ID)

	r.log.WithFields(logrus.Fields{"round": r.currentRound, "winner": roundWinner.ID}).Info("round ended")
	r.logActionLocked(roundWinner.ID, "round_ended", map[string]interface{}{"round": r.currentRound})
	r.fireEvent(GameEvent{
		Type:    EventRoundEnded,
		Player:  &EventPlayer{ID: roundWinner.ID, Username: roundWinner.Username},
		Payload: map[string]interface{}{"round": r.currentRound, "scores": r.scoresLocked()},
	})

	if r.currentRound >= r.rules.RoundsPerGame {
		r.endGameLocked()
		return
	}

	r.currentRound++
	for _, p := range r.players {
		p.Position = r.board[0]
		p.SkipNextTurn = false
	}
	r.startRoundTimerLocked()
	r.endTurnLocked()
}

// endGameLocked picks the game winner by greatest score (same tie policy as
// rounds), marks the room terminal and cancels both timers. The final
// result is persisted asynchronously when a store is attached.
// Assumes lock is held by caller.
func (r *Room) endGameLocked() {
	if r.ended {
		return
	}
	r.ended = true

	var best *models.Player
	for _, id := range r.turnOrder {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	if best != nil {
		r.winner = best.ID
	}
	r.stopTimersLocked()

	scores := r.scoresLocked()
	r.log.WithFields(logrus.Fields{"winner": r.winner, "scores": scores}).Info("game ended")
	r.logActionLocked(r.winner, "game_ended", map[string]interface{}{"scores": scores})
	r.fireEvent(GameEvent{
		Type:    EventGameEnded,
		Player:  &EventPlayer{ID: r.winner},
		Payload: map[string]interface{}{"scores": scores},
	})

	if r.results != nil {
		roomID, winner := r.ID, r.winner
		idScores := make(map[uuid.UUID]int, len(r.players))
		for id, p := range r.players {
			idScores[id] = p.Score
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.results.SaveGameResult(ctx, roomID, winner, idScores); err != nil {
				r.log.WithError(err).Error("failed persisting game result")
			}
		}()
	}

	if r.OnGameEnd != nil {
		idScores := make(map[uuid.UUID]int, len(r.players))
		for id, p := range r.players {
			idScores[id] = p.Score
		}
		r.OnGameEnd(r.ID, r.winner, idScores)
	}
}

// Disconnect handles a dropped connection. In the lobby the player is
// removed outright; mid-game they are retained and marked automated so the
// turn-order invariants hold, and if it was their turn the rotation
// advances immediately.
func (r *Room) Disconnect(playerID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}

	if !r.started {
		delete(r.players, playerID)
		r.pruneTurnOrderLocked()
		if r.hostID == playerID && len(r.turnOrder) > 0 {
			r.hostID = r.turnOrder[0]
			r.players[r.hostID].IsHost = true
		}
		if r.currentTurn == playerID && len(r.turnOrder) > 0 {
			r.currentTurn = r.turnOrder[0]
		}
		r.log.WithField("player", playerID).Info("player left lobby")
		r.logActionLocked(playerID, "player_left", nil)
		r.fireEvent(GameEvent{
			Type:   EventPlayerLeft,
			Player: &EventPlayer{ID: playerID, Username: p.Username},
		})
		r.broadcastStateLocked()
		return
	}

	if p.IsAutomated {
		return // already handled
	}
	p.Connected = false
	p.IsAutomated = true
	r.log.WithField("player", playerID).Info("player disconnected, switching to automated play")
	r.logActionLocked(playerID, "player_automated", nil)
	r.fireEvent(GameEvent{
		Type:   EventPlayerAutomated,
		Player: &EventPlayer{ID: playerID, Username: p.Username},
	})

	if !r.ended && r.currentTurn == playerID {
		r.endTurnLocked()
	}
	r.broadcastStateLocked()
}

// Reconnect restores manual control for an automated player and sends them
// a fresh private snapshot.
func (r *Room) Reconnect(playerID uuid.UUID) (*Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.Connected = true
	p.IsAutomated = false
	r.log.WithField("player", playerID).Info("player reconnected")
	r.logActionLocked(playerID, "player_reconnected", nil)
	r.fireEvent(GameEvent{
		Type:   EventPlayerReconnected,
		Player: &EventPlayer{ID: playerID, Username: p.Username},
	})
	r.broadcastStateLocked()
	return r.snapshotLocked(playerID), nil
}

// Close tears the room down, cancelling both timers. Idempotent.
func (r *Room) Close() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.stopTimersLocked()
}

// Reclaimable reports whether the registry should drop this room: an empty
// lobby, or a finished game nobody is connected to.
func (r *Room) Reclaimable() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if len(r.players) == 0 {
		return true
	}
	if !r.ended {
		return false
	}
	for _, p := range r.players {
		if p.Connected {
			return false
		}
	}
	return true
}

// PlayerCount returns the current roster size.
func (r *Room) PlayerCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.players)
}

// Joinable reports whether the room accepts new players.
func (r *Room) Joinable() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return !r.started && len(r.players) < r.rules.MaxPlayers
}

// pruneTurnOrderLocked drops ids that are no longer in the roster.
// Assumes lock is held by caller.
func (r *Room) pruneTurnOrderLocked() {
	kept := r.turnOrder[:0]
	for _, id := range r.turnOrder {
		if _, ok := r.players[id]; ok {
			kept = append(kept, id)
		}
	}
	r.turnOrder = kept
}

// turnIndexLocked locates an id in the rotation, or -1.
// Assumes lock is held by caller.
func (r *Room) turnIndexLocked(id uuid.UUID) int {
	for i, other := range r.turnOrder {
		if other == id {
			return i
		}
	}
	return -1
}

// scoresLocked returns username → score for event payloads.
// Assumes lock is held by caller.
func (r *Room) scoresLocked() map[string]int {
	scores := make(map[string]int, len(r.players))
	for _, p := range r.players {
		scores[p.Username] = p.Score
	}
	return scores
}

// fireEvent broadcasts an event to the whole room via the BroadcastFn
// callback.
// Assumes lock is held by caller.
func (r *Room) fireEvent(ev GameEvent) {
	if r.BroadcastFn != nil {
		r.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event to a single connected player.
// Assumes lock is held by caller.
func (r *Room) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if r.BroadcastToPlayerFn == nil {
		return
	}
	if p, ok := r.players[playerID]; ok && p.Connected {
		r.BroadcastToPlayerFn(playerID, ev)
	}
}

// broadcastStateLocked pushes the room state after a visible transition: a
// neutral snapshot (no hands revealed) to the whole room, then a
// personalized snapshot to each connected player.
// Assumes lock is held by caller.
func (r *Room) broadcastStateLocked() {
	r.fireEvent(GameEvent{
		Type:  EventRoomState,
		State: r.snapshotLocked(uuid.Nil),
	})
	if r.BroadcastToPlayerFn == nil {
		return
	}
	for _, p := range r.players {
		if p.Connected {
			r.fireEventToPlayer(p.ID, GameEvent{
				Type:  EventPrivateRoomState,
				State: r.snapshotLocked(p.ID),
			})
		}
	}
}

// logActionLocked publishes an action record to the historian queue.
// Fire-and-forget with a short timeout; a nil publisher disables it.
// Assumes lock is held by caller.
func (r *Room) logActionLocked(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := history.ActionRecord{
		RoomID:      r.ID,
		ActionIndex: r.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func(rec history.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.history.Publish(ctx, rec); err != nil {
			r.log.WithError(err).WithField("action", rec.ActionType).Error("failed publishing action record")
		}
	}(rec)
}
