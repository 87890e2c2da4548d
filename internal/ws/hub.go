// internal/ws/hub.go
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ponza-art/deployed-game-backend/internal/auth"
	"github.com/ponza-art/deployed-game-backend/internal/game"
)

const writeTimeout = 5 * time.Second

// client is one live websocket connection. Writes are serialized with the
// client's own mutex so room broadcasts and direct replies never interleave
// frames.
type client struct {
	conn     *websocket.Conn
	playerID uuid.UUID
	username string
	roomID   string

	mu sync.Mutex
}

func (c *client) send(msg ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}

// Hub accepts websocket connections and routes client intents to the room
// registry. It also owns each room's broadcast callbacks, translating game
// events into frames for the room's connected clients.
type Hub struct {
	registry  *game.Registry
	jwtSecret []byte
	log       *logrus.Entry

	mu     sync.RWMutex
	byRoom map[string]map[uuid.UUID]*client
}

// NewHub creates a hub over the given registry.
func NewHub(registry *game.Registry, jwtSecret []byte) *Hub {
	return &Hub{
		registry:  registry,
		jwtSecret: jwtSecret,
		byRoom:    make(map[string]map[uuid.UUID]*client),
		log:       logrus.WithField("component", "ws"),
	}
}

// ServeHTTP upgrades the request and runs the client's read loop until the
// connection drops, at which point the player is routed through the
// disconnect path of whatever room they were in.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}

	c := &client{conn: conn, playerID: uuid.New()}

	// A valid session token restores the player's previous identity so
	// reconnect can find them in their room.
	h.restoreIdentity(c, r.URL.Query().Get("token"))

	h.log.WithField("player", c.playerID).Info("client connected")
	h.readLoop(r.Context(), c)

	conn.Close(websocket.StatusNormalClosure, "bye")
	h.dropClient(c)
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			h.log.WithField("player", c.playerID).WithError(err).Debug("read loop ended")
			return
		}
		h.dispatch(c, msg)
	}
}

func (h *Hub) dispatch(c *client, msg ClientMessage) {
	switch msg.Type {
	case ActionCreateRoom:
		h.handleCreateRoom(c, msg)
	case ActionJoinRoom:
		h.handleJoinRoom(c, msg)
	case ActionListRooms:
		c.send(ServerMessage{Type: "rooms", Rooms: h.registry.ListPublicRooms()})
	case ActionStartGame:
		if err := h.registry.StartGame(c.roomID, c.playerID); err != nil {
			c.send(ServerMessage{Type: "error", Error: err.Error()})
		}
	case ActionPlayCard:
		res, err := h.registry.PlayCard(c.roomID, c.playerID, msg.CardIndex, msg.TargetID, msg.Direction)
		if err != nil {
			c.send(ServerMessage{Type: "error", Error: err.Error()})
			return
		}
		c.send(ServerMessage{Type: "play_result", Result: res})
	case ActionLeaveRoom:
		h.dropClient(c)
	case ActionReconnect:
		h.handleReconnect(c, msg)
	default:
		c.send(ServerMessage{Type: "error", Error: "unknown message type"})
	}
}

func (h *Hub) handleCreateRoom(c *client, msg ClientMessage) {
	if msg.RoomID == "" {
		msg.RoomID = uuid.NewString()
	}
	room, err := h.registry.CreateRoom(msg.RoomID, msg.IsPublic, msg.Password)
	if err != nil {
		c.send(ServerMessage{Type: "error", Error: err.Error()})
		return
	}
	h.bindRoom(room)
	h.handleJoinRoom(c, msg)
}

func (h *Hub) handleJoinRoom(c *client, msg ClientMessage) {
	if msg.Username != "" {
		c.username = msg.Username
	}
	snap, err := h.registry.JoinRoom(msg.RoomID, c.playerID, c.username, msg.Password)
	if err != nil {
		c.send(ServerMessage{Type: "error", Error: err.Error()})
		return
	}
	h.register(msg.RoomID, c)

	token, err := auth.NewSessionToken(h.jwtSecret, c.playerID, c.username, 24*time.Hour)
	if err != nil {
		h.log.WithError(err).Error("failed minting session token")
	}
	c.send(ServerMessage{Type: "joined", Snapshot: snap, PlayerID: c.playerID, Token: token})
}

// restoreIdentity adopts the player identity carried by a valid session
// token. An invalid or empty token leaves the client's identity alone.
func (h *Hub) restoreIdentity(c *client, token string) {
	if token == "" {
		return
	}
	claims, err := auth.ParseSessionToken(h.jwtSecret, token)
	if err != nil {
		h.log.WithError(err).Debug("rejected session token")
		return
	}
	c.playerID = claims.PlayerID
	c.username = claims.Username
}

func (h *Hub) handleReconnect(c *client, msg ClientMessage) {
	h.restoreIdentity(c, msg.Token)
	snap, err := h.registry.Reconnect(msg.RoomID, c.playerID)
	if err != nil {
		c.send(ServerMessage{Type: "error", Error: err.Error()})
		return
	}
	h.register(msg.RoomID, c)
	c.send(ServerMessage{Type: "joined", Snapshot: snap, PlayerID: c.playerID})
}

// bindRoom installs the broadcast callbacks on a freshly created room. The
// callbacks read the hub's connection table under its own lock, never the
// registry's, so room→hub calls cannot deadlock with hub→room calls.
func (h *Hub) bindRoom(room *game.Room) {
	roomID := room.ID
	room.BroadcastFn = func(ev game.GameEvent) {
		h.broadcast(roomID, ServerMessage{Type: "event", Event: &ev})
	}
	room.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.GameEvent) {
		h.sendToPlayer(roomID, playerID, ServerMessage{Type: "event", Event: &ev})
	}
}

func (h *Hub) register(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.roomID != "" && c.roomID != roomID {
		delete(h.byRoom[c.roomID], c.playerID)
	}
	c.roomID = roomID
	if h.byRoom[roomID] == nil {
		h.byRoom[roomID] = make(map[uuid.UUID]*client)
	}
	h.byRoom[roomID][c.playerID] = c
}

// dropClient removes the connection from its room and runs the game-side
// disconnect handling (lobby removal or automated substitution).
func (h *Hub) dropClient(c *client) {
	h.mu.Lock()
	roomID := c.roomID
	c.roomID = ""
	if roomID != "" {
		if clients, ok := h.byRoom[roomID]; ok {
			delete(clients, c.playerID)
			if len(clients) == 0 {
				delete(h.byRoom, roomID)
			}
		}
	}
	h.mu.Unlock()

	if roomID != "" {
		h.registry.Disconnect(roomID, c.playerID)
	}
}

func (h *Hub) broadcast(roomID string, msg ServerMessage) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.byRoom[roomID]))
	for _, c := range h.byRoom[roomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			h.log.WithField("player", c.playerID).WithError(err).Debug("broadcast write failed")
		}
	}
}

func (h *Hub) sendToPlayer(roomID string, playerID uuid.UUID, msg ServerMessage) {
	h.mu.RLock()
	c := h.byRoom[roomID][playerID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if err := c.send(msg); err != nil {
		h.log.WithField("player", playerID).WithError(err).Debug("direct write failed")
	}
}
