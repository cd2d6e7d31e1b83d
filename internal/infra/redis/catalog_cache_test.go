package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

// countingRepo counts source reads so tests can see cache hits.
type countingRepo struct {
	*memory.CatalogRepository
	reads atomic.Int64
}

func (r *countingRepo) QuizByID(ctx context.Context, id string) (domain.CatalogQuiz, error) {
	r.reads.Add(1)
	return r.CatalogRepository.QuizByID(ctx, id)
}

func TestQuizByIDCachesReads(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	repo := &countingRepo{CatalogRepository: memory.NewCatalogRepository()}
	cache := NewCatalogCache(repo, client, time.Minute)

	if err := cache.SaveQuiz(ctx, domain.CatalogQuiz{ID: "q1", Title: "quiz"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	for i := 0; i < 3; i++ {
		quiz, err := cache.QuizByID(ctx, "q1")
		if err != nil || quiz.Title != "quiz" {
			t.Fatalf("read %d: %+v %v", i, quiz, err)
		}
	}
	if got := repo.reads.Load(); got != 1 {
		t.Fatalf("expected one source read, got %d", got)
	}
	if !mr.Exists("catalog:quiz:q1") {
		t.Fatalf("expected cache entry")
	}
}

func TestSaveQuizInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := &countingRepo{CatalogRepository: memory.NewCatalogRepository()}
	cache := NewCatalogCache(repo, client, time.Minute)

	if err := cache.SaveQuiz(ctx, domain.CatalogQuiz{ID: "q1", Title: "old"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := cache.QuizByID(ctx, "q1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := cache.SaveQuiz(ctx, domain.CatalogQuiz{ID: "q1", Title: "new"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	quiz, err := cache.QuizByID(ctx, "q1")
	if err != nil || quiz.Title != "new" {
		t.Fatalf("expected fresh content after update, got %+v %v", quiz, err)
	}
}

func TestDeleteQuizInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	repo := &countingRepo{CatalogRepository: memory.NewCatalogRepository()}
	cache := NewCatalogCache(repo, client, time.Minute)

	if err := cache.SaveQuiz(ctx, domain.CatalogQuiz{ID: "q1", Title: "quiz"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := cache.QuizByID(ctx, "q1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := cache.DeleteQuiz(ctx, "q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("catalog:quiz:q1") {
		t.Fatalf("expected cache entry removed")
	}
	if _, err := cache.QuizByID(ctx, "q1"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestCorruptCacheEntryFallsThrough(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	repo := &countingRepo{CatalogRepository: memory.NewCatalogRepository()}
	cache := NewCatalogCache(repo, client, time.Minute)

	if err := cache.SaveQuiz(ctx, domain.CatalogQuiz{ID: "q1", Title: "quiz"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.Set("catalog:quiz:q1", "{broken")

	quiz, err := cache.QuizByID(ctx, "q1")
	if err != nil || quiz.Title != "quiz" {
		t.Fatalf("expected source read past the bad entry, got %+v %v", quiz, err)
	}
}
