// internal/history/history.go
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ActionRecord is one entry in a room's ordered action history. ActionIndex
// is assigned by the room under its lock, so records are totally ordered
// per room even though publishing is asynchronous.
type ActionRecord struct {
	RoomID      string                 `json:"roomId"`
	ActionIndex int                    `json:"actionIndex"`
	ActorID     uuid.UUID              `json:"actorId"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// Publisher appends action records to per-room Redis lists. A nil Publisher
// is valid and drops every record, so rooms need no feature flag.
type Publisher struct {
	client *redis.Client
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, addr, password string, db int) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Publisher{client: client}, nil
}

func historyKey(roomID string) string {
	return fmt.Sprintf("room:%s:history", roomID)
}

// Publish appends one record to the room's history list.
func (p *Publisher) Publish(ctx context.Context, rec ActionRecord) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	if err := p.client.RPush(ctx, historyKey(rec.RoomID), data).Err(); err != nil {
		return fmt.Errorf("rpush action record: %w", err)
	}
	return nil
}

// RoomHistory returns a room's full ordered action history.
func (p *Publisher) RoomHistory(ctx context.Context, roomID string) ([]ActionRecord, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := p.client.LRange(ctx, historyKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange history: %w", err)
	}
	records := make([]ActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec ActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal action record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
