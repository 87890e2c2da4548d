// internal/database/database.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists final game results to Postgres. A nil Store is valid and
// skips persistence, mirroring the history publisher's contract.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool against the given DSN and verifies it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// SaveGameResult inserts one finished game's outcome. Scores are stored as
// a JSON object keyed by player id.
func (s *Store) SaveGameResult(ctx context.Context, roomID string, winner uuid.UUID, scores map[uuid.UUID]int) error {
	if s == nil {
		return nil
	}
	byID := make(map[string]int, len(scores))
	for id, score := range scores {
		byID[id.String()] = score
	}
	data, err := json.Marshal(byID)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_results (room_id, winner_id, scores, finished_at)
		 VALUES ($1, $2, $3, NOW())`,
		roomID, winner, data)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil {
		s.pool.Close()
	}
}
