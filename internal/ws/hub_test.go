// internal/ws/hub_test.go
package ws

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponza-art/deployed-game-backend/internal/auth"
	"github.com/ponza-art/deployed-game-backend/internal/game"
)

func testHub(secret string) *Hub {
	return NewHub(game.NewRegistry(game.DefaultRules(), nil, nil), []byte(secret))
}

func TestRestoreIdentityAdoptsValidToken(t *testing.T) {
	h := testHub("test-secret")
	playerID := uuid.New()
	token, err := auth.NewSessionToken([]byte("test-secret"), playerID, "alice", time.Hour)
	require.NoError(t, err)

	c := &client{playerID: uuid.New()}
	h.restoreIdentity(c, token)

	assert.Equal(t, playerID, c.playerID)
	assert.Equal(t, "alice", c.username)
}

func TestRestoreIdentityRejectsBadToken(t *testing.T) {
	h := testHub("test-secret")
	original := uuid.New()
	c := &client{playerID: original, username: "guest"}

	h.restoreIdentity(c, "not-a-token")
	assert.Equal(t, original, c.playerID)
	assert.Equal(t, "guest", c.username)

	// Token signed with a different secret is ignored too.
	foreign, err := auth.NewSessionToken([]byte("other-secret"), uuid.New(), "mallory", time.Hour)
	require.NoError(t, err)
	h.restoreIdentity(c, foreign)
	assert.Equal(t, original, c.playerID)
	assert.Equal(t, "guest", c.username)
}

func TestRestoreIdentityIgnoresEmptyToken(t *testing.T) {
	h := testHub("test-secret")
	original := uuid.New()
	c := &client{playerID: original}

	h.restoreIdentity(c, "")
	assert.Equal(t, original, c.playerID)
}
