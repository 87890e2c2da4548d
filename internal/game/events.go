// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/ponza-art/deployed-game-backend/internal/models"
)

// GameEventType represents the type of a game-related event broadcast to the
// transport collaborator.
type GameEventType string

const (
	EventRoomState         GameEventType = "room_state"          // Public: full snapshot after a visible state change.
	EventPrivateRoomState  GameEventType = "private_room_state"  // Private: snapshot with the recipient's hand revealed.
	EventPlayerJoined      GameEventType = "player_joined"       // Public: a player entered the lobby.
	EventPlayerLeft        GameEventType = "player_left"         // Public: a player left the lobby.
	EventGameStarted       GameEventType = "game_started"        // Public: the host (or auto-start) began the game.
	EventCardPlayed        GameEventType = "card_played"         // Public: a card was resolved, includes result message.
	EventTurnStarted       GameEventType = "turn_started"        // Public: notification of the current player's turn.
	EventTurnTick          GameEventType = "turn_tick"           // Public: remaining seconds of the running turn.
	EventTurnExpired       GameEventType = "turn_expired"        // Public: the turn countdown reached zero.
	EventTurnSkipped       GameEventType = "turn_skipped"        // Public: a skip flag was consumed.
	EventRoundEnded        GameEventType = "round_ended"         // Public: round winner and scores.
	EventGameEnded         GameEventType = "game_ended"          // Public: game winner and final scores.
	EventPlayerAutomated   GameEventType = "player_automated"    // Public: a disconnected player is now machine-driven.
	EventPlayerReconnected GameEventType = "player_reconnected"  // Public: an automated player resumed manual play.
)

// EventPlayer identifies a player within a GameEvent payload.
type EventPlayer struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username,omitempty"`
}

// GameEvent is the standard structure handed to the broadcast callbacks.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Player  *EventPlayer           `json:"player,omitempty"`  // The player initiating or targeted by the event.
	Target  *EventPlayer           `json:"target,omitempty"`  // Target of a targeted card, if any.
	Card    *models.Card           `json:"card,omitempty"`    // Card involved, if any.
	Message string                 `json:"message,omitempty"` // Human-readable result description.
	Payload map[string]interface{} `json:"payload,omitempty"` // Additional arbitrary data.
	State   *Snapshot              `json:"state,omitempty"`   // Full snapshot for sync events.
}

// PlayResult is returned to the acting player after a successful PlayCard.
type PlayResult struct {
	Message    string      `json:"message"`
	PlayedCard models.Card `json:"playedCard"`
}

// TimerState reports the remaining whole units of both countdowns.
type TimerState struct {
	TurnRemaining  int `json:"turnRemaining"`
	RoundRemaining int `json:"roundRemaining"`
}

// SnapshotPlayer is a player's state as seen by a specific observer. Hands
// are revealed only to their owner; everyone else sees the size.
type SnapshotPlayer struct {
	ID            uuid.UUID     `json:"id"`
	Username      string        `json:"username"`
	Position      int           `json:"position"`
	Score         int           `json:"score"`
	RoundWins     int           `json:"roundWins"`
	HandSize      int           `json:"handSize"`
	Hand          []models.Card `json:"hand,omitempty"`
	IsAutomated   bool          `json:"isAutomated"`
	IsHost        bool          `json:"isHost"`
	Connected     bool          `json:"connected"`
	IsCurrentTurn bool          `json:"isCurrentTurn"`
}

// SnapshotState is the room-level portion of a snapshot.
type SnapshotState struct {
	Board        []int       `json:"board"`
	Turn         uuid.UUID   `json:"turn"`
	TurnOrder    []uuid.UUID `json:"turnOrder"`
	TurnCounter  int         `json:"turnCounter"`
	CurrentRound int         `json:"currentRound"`
	RoundWinners []uuid.UUID `json:"roundWinners"`
	Winner       uuid.UUID   `json:"winner,omitempty"`
	Started      bool        `json:"started"`
	Ended        bool        `json:"ended"`
	Timers       TimerState  `json:"timers"`
}

// Snapshot is the full visible state of a room for one observer.
type Snapshot struct {
	RoomID    string           `json:"roomId"`
	GameState SnapshotState    `json:"gameState"`
	Players   []SnapshotPlayer `json:"players"`
}

// snapshotLocked generates a state snapshot tailored to the perspective of
// forPlayer (uuid.Nil for a neutral observer with no hands revealed).
// Assumes lock is held by caller.
func (r *Room) snapshotLocked(forPlayer uuid.UUID) *Snapshot {
	snap := &Snapshot{
		RoomID: r.ID,
		GameState: SnapshotState{
			Board:        append([]int(nil), r.board...),
			Turn:         r.currentTurn,
			TurnOrder:    append([]uuid.UUID(nil), r.turnOrder...),
			TurnCounter:  r.turnCounter,
			CurrentRound: r.currentRound,
			RoundWinners: append([]uuid.UUID(nil), r.roundWinners...),
			Winner:       r.winner,
			Started:      r.started,
			Ended:        r.ended,
			Timers: TimerState{
				TurnRemaining:  r.turnTimer.left(),
				RoundRemaining: r.roundTimer.left(),
			},
		},
	}

	snap.Players = make([]SnapshotPlayer, 0, len(r.players))
	for _, id := range r.turnOrder {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		sp := SnapshotPlayer{
			ID:            p.ID,
			Username:      p.Username,
			Position:      p.Position,
			Score:         p.Score,
			RoundWins:     p.RoundWins,
			HandSize:      len(p.Hand),
			IsAutomated:   p.IsAutomated,
			IsHost:        p.IsHost,
			Connected:     p.Connected,
			IsCurrentTurn: r.started && !r.ended && r.currentTurn == p.ID,
		}
		if p.ID == forPlayer {
			sp.Hand = append([]models.Card(nil), p.Hand...)
		}
		snap.Players = append(snap.Players, sp)
	}
	return snap
}

// Snapshot returns the room state from the given observer's perspective.
func (r *Room) Snapshot(forPlayer uuid.UUID) *Snapshot {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshotLocked(forPlayer)
}
