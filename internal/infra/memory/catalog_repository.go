package memory

import (
	"context"
	"sort"
	"sync"

	"quizroom-service/internal/domain"
)

// CatalogRepository is the in-memory implementation of
// app.CatalogRepository, used in development and tests.
type CatalogRepository struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	quizzes  map[string]domain.CatalogQuiz
	attempts map[string]map[string]domain.Attempt // quizID -> userID -> attempt
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		users:    make(map[string]domain.User),
		quizzes:  make(map[string]domain.CatalogQuiz),
		attempts: make(map[string]map[string]domain.Attempt),
	}
}

func (r *CatalogRepository) CreateUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Name == user.Name {
			return domain.ErrNameTaken
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *CatalogRepository) UserByName(_ context.Context, name string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Name == name {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *CatalogRepository) User(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *CatalogRepository) SaveQuiz(_ context.Context, quiz domain.CatalogQuiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[quiz.ID] = quiz
	return nil
}

func (r *CatalogRepository) QuizByID(_ context.Context, id string) (domain.CatalogQuiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if q, ok := r.quizzes[id]; ok {
		return q, nil
	}
	return domain.CatalogQuiz{}, domain.ErrQuizNotFound
}

func (r *CatalogRepository) Quizzes(_ context.Context) ([]domain.CatalogQuiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.CatalogQuiz, 0, len(r.quizzes))
	for _, q := range r.quizzes {
		all = append(all, q)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

func (r *CatalogRepository) DeleteQuiz(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.quizzes, id)
	delete(r.attempts, id)
	return nil
}

func (r *CatalogRepository) UpsertAttempt(_ context.Context, attempt domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.attempts[attempt.QuizID]
	if !ok {
		byUser = make(map[string]domain.Attempt)
		r.attempts[attempt.QuizID] = byUser
	}
	byUser[attempt.UserID] = attempt
	return nil
}

func (r *CatalogRepository) AttemptsByQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byUser := r.attempts[quizID]
	all := make([]domain.Attempt, 0, len(byUser))
	for _, a := range byUser {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SubmittedAt.Before(all[j].SubmittedAt) })
	return all, nil
}

func (r *CatalogRepository) AttemptsByUser(_ context.Context, userID string) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Attempt, 0)
	for _, byUser := range r.attempts {
		if a, ok := byUser[userID]; ok {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SubmittedAt.Before(all[j].SubmittedAt) })
	return all, nil
}

func (r *CatalogRepository) DeleteAttempt(_ context.Context, quizID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.attempts[quizID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if _, ok := byUser[userID]; !ok {
		return domain.ErrAttemptNotFound
	}
	delete(byUser, userID)
	return nil
}
