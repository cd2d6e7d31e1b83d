package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/domain"
)

const snapshotKey = "quizroom:snapshot"

// SnapshotStore keeps the full room snapshot set as one JSON value in
// Redis. With a TTL configured, abandoned deployments age out on their own;
// ttl zero means keep forever.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, rooms map[string]domain.RoomSnapshot) error {
	data, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context) (map[string]domain.RoomSnapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return map[string]domain.RoomSnapshot{}, nil
		}
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	rooms := make(map[string]domain.RoomSnapshot)
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return rooms, nil
}
