// internal/ws/messages.go
package ws

import (
	"github.com/google/uuid"

	"github.com/ponza-art/deployed-game-backend/internal/game"
	"github.com/ponza-art/deployed-game-backend/internal/models"
)

// ClientMessage is the envelope for every client→server frame. Type selects
// the action; the other fields are read per action and ignored otherwise.
type ClientMessage struct {
	Type string `json:"type"`

	RoomID   string `json:"roomId,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	IsPublic bool   `json:"isPublic,omitempty"`

	CardIndex int              `json:"cardIndex,omitempty"`
	TargetID  uuid.UUID        `json:"targetId,omitempty"`
	Direction models.Direction `json:"direction,omitempty"`

	Token string `json:"token,omitempty"`
}

const (
	ActionCreateRoom = "create_room"
	ActionJoinRoom   = "join_room"
	ActionListRooms  = "list_rooms"
	ActionStartGame  = "start_game"
	ActionPlayCard   = "play_card"
	ActionLeaveRoom  = "leave_room"
	ActionReconnect  = "reconnect"
)

// ServerMessage is the envelope for every server→client frame.
type ServerMessage struct {
	Type     string             `json:"type"`
	Error    string             `json:"error,omitempty"`
	Event    *game.GameEvent    `json:"event,omitempty"`
	Snapshot *game.Snapshot     `json:"snapshot,omitempty"`
	Result   *game.PlayResult   `json:"result,omitempty"`
	Rooms    []game.RoomSummary `json:"rooms,omitempty"`
	PlayerID uuid.UUID          `json:"playerId,omitempty"`
	Token    string             `json:"token,omitempty"`
}
