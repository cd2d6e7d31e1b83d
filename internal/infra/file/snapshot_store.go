package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"quizroom-service/internal/domain"
)

// SnapshotStore persists room snapshots as a single JSON document on disk.
// Writes go through a temp file plus rename so a crash mid-write leaves the
// previous snapshot intact rather than a truncated one.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

func (s *SnapshotStore) Save(_ context.Context, rooms map[string]domain.RoomSnapshot) error {
	data, err := json.MarshalIndent(rooms, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot document. A missing file is an empty set, not an
// error: first boot has nothing to restore.
func (s *SnapshotStore) Load(_ context.Context) (map[string]domain.RoomSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]domain.RoomSnapshot{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	rooms := make(map[string]domain.RoomSnapshot)
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return rooms, nil
}
