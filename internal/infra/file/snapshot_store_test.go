package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizroom-service/internal/domain"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "rooms.json")
	store := NewSnapshotStore(path)

	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.SetQuestions([]domain.Question{{Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1}})
	if _, err := room.AddParticipant("c1", "Alice"); err != nil {
		t.Fatalf("add participant: %v", err)
	}
	room.FinalRankingAt = time.Now().UTC()

	if err := store.Save(ctx, map[string]domain.RoomSnapshot{"R1": room.Snapshot()}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	snap, ok := loaded["R1"]
	if !ok {
		t.Fatalf("snapshot missing: %+v", loaded)
	}
	if snap.PresenterName != "Ms Chen" || len(snap.Participants) != 1 || len(snap.Questions) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "absent.json"))
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty set, got %+v", loaded)
	}
}

func TestLoadCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewSnapshotStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rooms.json")
	store := NewSnapshotStore(path)

	first := domain.NewRoom("R1", "pres", "Ms Chen")
	if err := store.Save(ctx, map[string]domain.RoomSnapshot{"R1": first.Snapshot()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := domain.NewRoom("R2", "pres", "Mr Soto")
	if err := store.Save(ctx, map[string]domain.RoomSnapshot{"R2": second.Snapshot()}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, still := loaded["R1"]; still || len(loaded) != 1 {
		t.Fatalf("expected full replacement, got %+v", loaded)
	}
}
