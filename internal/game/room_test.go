// internal/game/room_test.go
package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponza-art/deployed-game-backend/internal/auth"
	"github.com/ponza-art/deployed-game-backend/internal/models"
)

// newID derives a stable uuid from a small integer so tests can refer to
// players without threading variables everywhere.
func newID(t *testing.T, n int) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
	require.NoError(t, err)
	return id
}

// mockBroadcaster captures everything a room broadcasts, for assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]GameEvent)}
}

func (m *mockBroadcaster) attach(r *Room) {
	r.BroadcastFn = func(ev GameEvent) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.allEvents = append(m.allEvents, ev)
	}
	r.BroadcastToPlayerFn = func(playerID uuid.UUID, ev GameEvent) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.playerEvents[playerID] = append(m.playerEvents[playerID], ev)
	}
}

func (m *mockBroadcaster) countOf(typ GameEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.allEvents {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (m *mockBroadcaster) playerCountOf(playerID uuid.UUID, typ GameEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.playerEvents[playerID] {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (m *mockBroadcaster) lastOf(typ GameEventType) (GameEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.allEvents) - 1; i >= 0; i-- {
		if m.allEvents[i].Type == typ {
			return m.allEvents[i], true
		}
	}
	return GameEvent{}, false
}

// setupTestRoom builds a room with n players joined and timers disabled.
// Autoplay is parked far in the future so it never interferes unless a test
// shortens the delay explicitly.
func setupTestRoom(t *testing.T, n int, mutate func(*Rules)) (*Room, []uuid.UUID, *mockBroadcaster) {
	t.Helper()
	rules := DefaultRules()
	rules.TurnSeconds = 0
	rules.RoundSeconds = 0
	if mutate != nil {
		mutate(&rules)
	}

	r := NewRoom("test-room", true, nil, rules, 42)
	r.autoplayDelay = time.Hour
	mb := newMockBroadcaster()
	mb.attach(r)

	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		ids[i] = newID(t, i+1)
		_, err := r.AddPlayer(ids[i], fmt.Sprintf("player%d", i+1), "")
		require.NoError(t, err)
	}
	return r, ids, mb
}

// setHand overwrites a player's hand for deterministic plays.
func setHand(r *Room, id uuid.UUID, cards ...models.Card) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.players[id].Hand = cards
}

func moveCard(v int) models.Card { return models.Card{Kind: models.KindMove, Value: v} }

func TestAddPlayerFirstJoinerIsHost(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)

	host := r.players[ids[0]]
	assert.True(t, host.IsHost)
	assert.Equal(t, ids[0], r.hostID)
	assert.Equal(t, ids[0], r.currentTurn)
	assert.Len(t, host.Hand, r.rules.HandSize)
	assert.Equal(t, r.board[0], host.Position)
	assert.False(t, r.players[ids[1]].IsHost)
	assert.Equal(t, 2, mb.countOf(EventPlayerJoined))
}

func TestAddPlayerRejectsDuplicate(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 1, nil)
	_, err := r.AddPlayer(ids[0], "again", "")
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
}

func TestAddPlayerRejectsWhenFull(t *testing.T) {
	r, _, _ := setupTestRoom(t, 2, func(rules *Rules) { rules.MaxPlayers = 2 })
	_, err := r.AddPlayer(newID(t, 99), "late", "")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestAddPlayerRejectsAfterStart(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))
	_, err := r.AddPlayer(newID(t, 99), "late", "")
	assert.ErrorIs(t, err, ErrGameStarted)
}

func TestAddPlayerChecksPassword(t *testing.T) {
	hash, err := auth.HashPassword("sesame")
	require.NoError(t, err)
	r := NewRoom("locked", false, hash, DefaultRules(), 1)
	r.autoplayDelay = time.Hour

	_, err = r.AddPlayer(newID(t, 1), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = r.AddPlayer(newID(t, 1), "alice", "sesame")
	assert.NoError(t, err)
}

func TestStartGameRequiresHost(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 2, nil)
	assert.ErrorIs(t, r.StartGame(ids[1]), ErrNotHost)
}

func TestStartGameRequiresMinPlayers(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 1, nil)
	assert.ErrorIs(t, r.StartGame(ids[0]), ErrNotEnoughPlayers)
}

func TestStartGameOnlyOnce(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))
	assert.ErrorIs(t, r.StartGame(ids[0]), ErrGameStarted)
	assert.Equal(t, 1, mb.countOf(EventGameStarted))
}

func TestAutoStartAtMinPlayers(t *testing.T) {
	r, _, mb := setupTestRoom(t, 2, func(rules *Rules) { rules.AutoStart = true })
	assert.True(t, r.started)
	assert.Equal(t, 1, mb.countOf(EventGameStarted))
}

func TestPlayCardLifecycleValidation(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 2, nil)

	_, err := r.PlayCard(ids[0], 0, uuid.Nil, models.DirectionForward)
	assert.ErrorIs(t, err, ErrGameNotStarted)

	require.NoError(t, r.StartGame(ids[0]))

	_, err = r.PlayCard(ids[1], 0, uuid.Nil, models.DirectionForward)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = r.PlayCard(ids[0], 99, uuid.Nil, models.DirectionForward)
	assert.ErrorIs(t, err, ErrInvalidCardIndex)
}

func TestPlayCardTargetValidation(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))
	setHand(r, ids[0], models.Card{Kind: models.KindMindPlay, Effect: models.EffectSkipOpponentTurn})

	_, err := r.PlayCard(ids[0], 0, uuid.Nil, "")
	assert.ErrorIs(t, err, ErrTargetRequired)

	_, err = r.PlayCard(ids[0], 0, ids[0], "")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = r.PlayCard(ids[0], 0, newID(t, 99), "")
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestFailedPlayLeavesStateUntouched(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))
	steal := models.Card{Kind: models.KindMindPlay, Effect: models.EffectStealPoints, Value: 10}
	setHand(r, ids[0], steal, moveCard(1), moveCard(2))

	turnBefore := r.turnCounter
	_, err := r.PlayCard(ids[0], 0, ids[1], "")
	require.ErrorIs(t, err, ErrNoPointsToSteal)

	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.Equal(t, ids[0], r.currentTurn)
	assert.Equal(t, turnBefore, r.turnCounter)
	assert.Len(t, r.players[ids[0]].Hand, 3)
	assert.Equal(t, steal, r.players[ids[0]].Hand[0])
	assert.Equal(t, 0, r.players[ids[0]].Score)
}

func TestPlayMoveCardAdvancesAndPassesTurn(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))
	setHand(r, ids[0], moveCard(3), moveCard(1), moveCard(2))

	res, err := r.PlayCard(ids[0], 0, uuid.Nil, models.DirectionForward)
	require.NoError(t, err)
	assert.Equal(t, moveCard(3), res.PlayedCard)

	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.players[ids[0]]
	assert.Equal(t, r.board[3], p.Position)
	assert.Equal(t, 3, p.Score)
	assert.Len(t, p.Hand, 3) // replenished after playing
	assert.Equal(t, ids[1], r.currentTurn)
	assert.Equal(t, 1, mb.countOf(EventCardPlayed))
}

func TestRoundRobinRotation(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 3, nil)
	require.NoError(t, r.StartGame(ids[0]))

	expect := []uuid.UUID{ids[1], ids[2], ids[0], ids[1]}
	for _, want := range expect {
		r.Mu.Lock()
		current := r.currentTurn
		r.Mu.Unlock()
		setHand(r, current, moveCard(1))
		_, err := r.PlayCard(current, 0, uuid.Nil, models.DirectionForward)
		require.NoError(t, err)

		r.Mu.Lock()
		assert.Equal(t, want, r.currentTurn)
		assert.Contains(t, r.turnOrder, r.currentTurn)
		r.Mu.Unlock()
	}
}

func TestSkipFlagConsumedExactlyOnce(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))
	setHand(r, ids[1], models.Card{Kind: models.KindMindPlay, Effect: models.EffectSkipOpponentTurn})
	setHand(r, ids[0], moveCard(1), moveCard(1), moveCard(1))

	// p0 passes, p1 skips p0, rotation passes over p0 clearing the flag.
	_, err := r.PlayCard(ids[0], 0, uuid.Nil, models.DirectionForward)
	require.NoError(t, err)
	_, err = r.PlayCard(ids[1], 0, ids[0], "")
	require.NoError(t, err)

	r.Mu.Lock()
	assert.Equal(t, ids[1], r.currentTurn) // p0 was passed over
	assert.False(t, r.players[ids[0]].SkipNextTurn)
	r.Mu.Unlock()
	assert.Equal(t, 1, mb.countOf(EventTurnSkipped))

	// Once the rotation comes back, p0 plays normally.
	setHand(r, ids[1], moveCard(1))
	_, err = r.PlayCard(ids[1], 0, uuid.Nil, models.DirectionForward)
	require.NoError(t, err)
	setHand(r, ids[0], moveCard(2))
	_, err = r.PlayCard(ids[0], 0, uuid.Nil, models.DirectionForward)
	require.NoError(t, err)
}

func TestReachingTerminalMarkerEndsRound(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))

	r.Mu.Lock()
	r.players[ids[0]].Position = r.board[len(r.board)-2]
	r.Mu.Unlock()
	setHand(r, ids[0], moveCard(6))

	_, err := r.PlayCard(ids[0], 0, uuid.Nil, models.DirectionForward)
	require.NoError(t, err)

	r.Mu.Lock()
	defer r.Mu.Unlock()
	winner := r.players[ids[0]]
	assert.Equal(t, 1, winner.RoundWins)
	assert.Equal(t, r.rules.WinningPoints+1, winner.Score) // 1 marker moved + round award
	assert.Equal(t, 2, r.currentRound)
	assert.Equal(t, []uuid.UUID{ids[0]}, r.roundWinners)
	assert.False(t, r.ended)
	assert.Equal(t, 1, mb.countOf(EventRoundEnded))

	// Everyone back at the start for the new round.
	for _, id := range ids {
		assert.Equal(t, r.board[0], r.players[id].Position)
	}
}

func TestGameEndsAfterConfiguredRounds(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, func(rules *Rules) { rules.RoundsPerGame = 1 })
	require.NoError(t, r.StartGame(ids[0]))

	r.Mu.Lock()
	r.players[ids[0]].Position = r.board[len(r.board)-2]
	r.Mu.Unlock()
	setHand(r, ids[0], moveCard(1))

	_, err := r.PlayCard(ids[0], 0, uuid.Nil, models.DirectionForward)
	require.NoError(t, err)

	r.Mu.Lock()
	assert.True(t, r.ended)
	assert.Equal(t, ids[0], r.winner)
	r.Mu.Unlock()
	assert.Equal(t, 1, mb.countOf(EventGameEnded))

	ended, ok := mb.lastOf(EventGameEnded)
	require.True(t, ok)
	assert.Contains(t, ended.Payload, "scores")

	// Terminal state rejects further play.
	_, err = r.PlayCard(ids[1], 0, uuid.Nil, models.DirectionForward)
	assert.ErrorIs(t, err, ErrGameEnded)
}

func TestRoundTieGoesToEarliestInTurnOrder(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 3, nil)
	require.NoError(t, r.StartGame(ids[0]))

	r.Mu.Lock()
	for _, id := range ids {
		r.players[id].Position = r.board[20]
	}
	r.endRoundLocked()
	winner := r.roundWinners[0]
	r.Mu.Unlock()

	assert.Equal(t, ids[0], winner)
}

func TestGameWinnerByHighestScore(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 3, nil)
	require.NoError(t, r.StartGame(ids[0]))

	r.Mu.Lock()
	r.players[ids[0]].Score = 5
	r.players[ids[1]].Score = 31
	r.players[ids[2]].Score = 12
	r.endGameLocked()
	winner := r.winner
	r.Mu.Unlock()

	assert.Equal(t, ids[1], winner)
}

func TestDisconnectInLobbyRemovesPlayer(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)

	r.Disconnect(ids[0])

	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.NotContains(t, r.turnOrder, ids[0])
	assert.Equal(t, ids[1], r.hostID)
	assert.True(t, r.players[ids[1]].IsHost)
	assert.Equal(t, 1, mb.countOf(EventPlayerLeft))
}

func TestDisconnectInGameSwitchesToAutomated(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))

	r.Disconnect(ids[0])

	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.players[ids[0]]
	assert.True(t, p.IsAutomated)
	assert.False(t, p.Connected)
	assert.Contains(t, r.turnOrder, ids[0]) // stays in the rotation
	assert.Equal(t, ids[1], r.currentTurn)  // their turn advanced immediately
	assert.Equal(t, 1, mb.countOf(EventPlayerAutomated))
}

func TestReconnectRestoresManualControl(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))
	r.Disconnect(ids[0])

	snap, err := r.Reconnect(ids[0])
	require.NoError(t, err)

	r.Mu.Lock()
	p := r.players[ids[0]]
	assert.False(t, p.IsAutomated)
	assert.True(t, p.Connected)
	r.Mu.Unlock()
	assert.Equal(t, 1, mb.countOf(EventPlayerReconnected))

	// The private snapshot reveals only the reconnecting player's hand.
	for _, sp := range snap.Players {
		if sp.ID == ids[0] {
			assert.NotEmpty(t, sp.Hand)
		} else {
			assert.Empty(t, sp.Hand)
			assert.Equal(t, r.rules.HandSize, sp.HandSize)
		}
	}
}

func TestReconnectUnknownPlayer(t *testing.T) {
	r, _, _ := setupTestRoom(t, 2, nil)
	_, err := r.Reconnect(newID(t, 99))
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSnapshotHidesOtherHands(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 3, nil)
	snap := r.Snapshot(ids[1])

	require.Len(t, snap.Players, 3)
	for _, sp := range snap.Players {
		if sp.ID == ids[1] {
			assert.Len(t, sp.Hand, r.rules.HandSize)
		} else {
			assert.Nil(t, sp.Hand)
		}
		assert.Equal(t, r.rules.HandSize, sp.HandSize)
	}
	assert.Equal(t, "test-room", snap.RoomID)
	assert.Len(t, snap.GameState.Board, r.rules.BoardSize)
}

func TestPublicStateBroadcastOmitsHands(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))

	require.GreaterOrEqual(t, mb.countOf(EventRoomState), 1)
	ev, ok := mb.lastOf(EventRoomState)
	require.True(t, ok)
	require.NotNil(t, ev.State)
	for _, sp := range ev.State.Players {
		assert.Nil(t, sp.Hand)
		assert.Equal(t, r.rules.HandSize, sp.HandSize)
	}
}

func TestSkipConsumptionBroadcastsSnapshot(t *testing.T) {
	r, ids, mb := setupTestRoom(t, 2, nil)
	require.NoError(t, r.StartGame(ids[0]))

	r.Mu.Lock()
	r.players[ids[0]].SkipNextTurn = true
	r.Mu.Unlock()

	publicBefore := mb.countOf(EventRoomState)
	privateBefore := mb.playerCountOf(ids[1], EventPrivateRoomState)

	_, err := r.PlayCard(ids[0], 0, uuid.Nil, models.DirectionForward)
	require.ErrorIs(t, err, ErrTurnSkipped)

	r.Mu.Lock()
	assert.Equal(t, ids[1], r.currentTurn)
	r.Mu.Unlock()
	assert.Greater(t, mb.countOf(EventRoomState), publicBefore)
	assert.Greater(t, mb.playerCountOf(ids[1], EventPrivateRoomState), privateBefore)
}

func TestReclaimable(t *testing.T) {
	r, ids, _ := setupTestRoom(t, 2, nil)
	assert.False(t, r.Reclaimable())

	require.NoError(t, r.StartGame(ids[0]))
	r.Mu.Lock()
	r.endGameLocked()
	r.Mu.Unlock()
	assert.False(t, r.Reclaimable()) // players still connected

	r.Disconnect(ids[0])
	r.Disconnect(ids[1])
	assert.True(t, r.Reclaimable())
}
