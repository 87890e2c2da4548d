// internal/game/registry.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ponza-art/deployed-game-backend/internal/auth"
	"github.com/ponza-art/deployed-game-backend/internal/database"
	"github.com/ponza-art/deployed-game-backend/internal/history"
	"github.com/ponza-art/deployed-game-backend/internal/models"
)

// Registry is the process-wide directory of active rooms. Room ids are
// unique across the registry; lookups take a read lock while room
// transitions run under each room's own mutex, so games in different rooms
// never contend.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	rules   Rules
	history *history.Publisher
	results *database.Store
	log     *logrus.Entry
}

// RoomSummary describes one joinable public room for listings.
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// NewRegistry creates an empty registry. history and results may be nil;
// rooms then run without action logging or result persistence.
func NewRegistry(rules Rules, h *history.Publisher, s *database.Store) *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		rules:   rules,
		history: h,
		results: s,
		log:     logrus.WithField("component", "registry"),
	}
}

// CreateRoom registers a new room under a unique id. A non-empty password
// makes the room private regardless of the visibility flag's listing
// behavior; the hash is stored, never the password.
func (reg *Registry) CreateRoom(id string, isPublic bool, password string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.rooms[id]; exists {
		return nil, ErrRoomAlreadyExists
	}

	var hash []byte
	if password != "" {
		var err error
		hash, err = auth.HashPassword(password)
		if err != nil {
			return nil, err
		}
	}

	room := NewRoom(id, isPublic, hash, reg.rules, uint64(time.Now().UnixNano()))
	room.SetHistory(reg.history)
	room.SetResults(reg.results)
	reg.rooms[id] = room
	reg.log.WithFields(logrus.Fields{"room": id, "public": isPublic}).Info("room created")
	return room, nil
}

// Room looks up a room by id.
func (reg *Registry) Room(id string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ListPublicRooms returns summaries of public rooms still accepting players.
func (reg *Registry) ListPublicRooms() []RoomSummary {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]RoomSummary, 0, len(reg.rooms))
	for id, room := range reg.rooms {
		if !room.IsPublic || !room.Joinable() {
			continue
		}
		out = append(out, RoomSummary{
			RoomID:      id,
			PlayerCount: room.PlayerCount(),
			MaxPlayers:  room.Rules().MaxPlayers,
		})
	}
	return out
}

// JoinRoom admits a player into a room by id.
func (reg *Registry) JoinRoom(roomID string, playerID uuid.UUID, username, password string) (*Snapshot, error) {
	room, err := reg.Room(roomID)
	if err != nil {
		return nil, err
	}
	return room.AddPlayer(playerID, username, password)
}

// StartGame starts a room's game on behalf of its host.
func (reg *Registry) StartGame(roomID string, playerID uuid.UUID) error {
	room, err := reg.Room(roomID)
	if err != nil {
		return err
	}
	return room.StartGame(playerID)
}

// PlayCard resolves a card play in the named room.
func (reg *Registry) PlayCard(roomID string, playerID uuid.UUID, cardIndex int, targetID uuid.UUID, dir models.Direction) (*PlayResult, error) {
	room, err := reg.Room(roomID)
	if err != nil {
		return nil, err
	}
	return room.PlayCard(playerID, cardIndex, targetID, dir)
}

// Disconnect routes a dropped connection to its room, then reclaims the
// room if nothing keeps it alive.
func (reg *Registry) Disconnect(roomID string, playerID uuid.UUID) {
	room, err := reg.Room(roomID)
	if err != nil {
		return
	}
	room.Disconnect(playerID)
	reg.reclaim(roomID, room)
}

// Reconnect restores manual control for a player in the named room.
func (reg *Registry) Reconnect(roomID string, playerID uuid.UUID) (*Snapshot, error) {
	room, err := reg.Room(roomID)
	if err != nil {
		return nil, err
	}
	return room.Reconnect(playerID)
}

// reclaim drops a room whose lifecycle is over: an emptied lobby or a
// finished game with nobody connected. Checked outside the room lock to
// keep lock ordering registry→room one-way.
func (reg *Registry) reclaim(roomID string, room *Room) {
	if !room.Reclaimable() {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if current, ok := reg.rooms[roomID]; ok && current == room {
		room.Close()
		delete(reg.rooms, roomID)
		reg.log.WithField("room", roomID).Info("room reclaimed")
	}
}
