package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizroom-service/internal/domain"
)

// CatalogRepository abstracts storage for the asynchronous quiz catalogue
// (in-memory, Postgres, optionally fronted by a Redis cache).
type CatalogRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	UserByName(ctx context.Context, name string) (domain.User, error)
	User(ctx context.Context, id string) (domain.User, error)

	SaveQuiz(ctx context.Context, quiz domain.CatalogQuiz) error
	QuizByID(ctx context.Context, id string) (domain.CatalogQuiz, error)
	Quizzes(ctx context.Context) ([]domain.CatalogQuiz, error)
	DeleteQuiz(ctx context.Context, id string) error

	UpsertAttempt(ctx context.Context, attempt domain.Attempt) error
	AttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
	AttemptsByUser(ctx context.Context, userID string) ([]domain.Attempt, error)
	DeleteAttempt(ctx context.Context, quizID, userID string) error
}

// CatalogService contains the asynchronous quiz use cases: authoring,
// independent completion, and result review. Only the original author may
// edit, delete, or inspect a quiz's results.
type CatalogService struct {
	repo   CatalogRepository
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewCatalogService(repo CatalogRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// RegisterUser creates a user keyed by a unique display name.
func (s *CatalogService) RegisterUser(ctx context.Context, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if _, err := s.repo.UserByName(ctx, name); err == nil {
		return domain.User{}, domain.ErrNameTaken
	}
	user := domain.User{ID: s.newID(), Name: name, CreatedAt: s.now()}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user registered", "userId", user.ID, "name", name)
	return user, nil
}

// LoginUser resolves an existing user by display name.
func (s *CatalogService) LoginUser(ctx context.Context, name string) (domain.User, error) {
	return s.repo.UserByName(ctx, strings.TrimSpace(name))
}

// CreateQuiz validates and stores a new authored quiz.
func (s *CatalogService) CreateQuiz(ctx context.Context, quiz domain.CatalogQuiz) (domain.CatalogQuiz, error) {
	if err := validateQuiz(quiz); err != nil {
		return domain.CatalogQuiz{}, err
	}
	creator, err := s.repo.User(ctx, quiz.CreatorID)
	if err != nil {
		return domain.CatalogQuiz{}, err
	}
	quiz.ID = s.newID()
	quiz.CreatorName = creator.Name
	quiz.CreatedAt = s.now()
	if err := s.repo.SaveQuiz(ctx, quiz); err != nil {
		return domain.CatalogQuiz{}, err
	}
	s.logger.Info("catalogue quiz created", "quizId", quiz.ID, "creator", creator.Name)
	return quiz, nil
}

// UpdateQuiz replaces an authored quiz's content. Author only.
func (s *CatalogService) UpdateQuiz(ctx context.Context, quiz domain.CatalogQuiz, callerID string) (domain.CatalogQuiz, error) {
	existing, err := s.repo.QuizByID(ctx, quiz.ID)
	if err != nil {
		return domain.CatalogQuiz{}, err
	}
	if existing.CreatorID != callerID {
		return domain.CatalogQuiz{}, domain.ErrForbidden
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.CatalogQuiz{}, err
	}
	quiz.CreatorID = existing.CreatorID
	quiz.CreatorName = existing.CreatorName
	quiz.CreatedAt = existing.CreatedAt
	if err := s.repo.SaveQuiz(ctx, quiz); err != nil {
		return domain.CatalogQuiz{}, err
	}
	return quiz, nil
}

// DeleteQuiz removes a quiz and all its results. Author only.
func (s *CatalogService) DeleteQuiz(ctx context.Context, quizID, callerID string) error {
	quiz, err := s.repo.QuizByID(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.CreatorID != callerID {
		return domain.ErrForbidden
	}
	if err := s.repo.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.logger.Info("catalogue quiz deleted", "quizId", quizID)
	return nil
}

func (s *CatalogService) Quiz(ctx context.Context, id string) (domain.CatalogQuiz, error) {
	return s.repo.QuizByID(ctx, id)
}

func (s *CatalogService) Quizzes(ctx context.Context) ([]domain.CatalogQuiz, error) {
	return s.repo.Quizzes(ctx)
}

// SubmitAttempt grades a completed pass server-side and records it. A
// resubmission by the same user replaces their previous result.
func (s *CatalogService) SubmitAttempt(ctx context.Context, quizID, userID string, answers []domain.AttemptAnswer) (domain.Attempt, error) {
	quiz, err := s.repo.QuizByID(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	user, err := s.repo.User(ctx, userID)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt := domain.Attempt{
		ID:             s.newID(),
		QuizID:         quizID,
		UserID:         userID,
		UserName:       user.Name,
		Answers:        answers,
		Score:          domain.ScoreAttempt(quiz, answers),
		TotalQuestions: len(quiz.Questions),
		SubmittedAt:    s.now(),
	}
	if err := s.repo.UpsertAttempt(ctx, attempt); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

// QuizResults lists recorded attempts for a quiz. Author only.
func (s *CatalogService) QuizResults(ctx context.Context, quizID, callerID string) ([]domain.Attempt, error) {
	quiz, err := s.repo.QuizByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.CreatorID != callerID {
		return nil, domain.ErrForbidden
	}
	return s.repo.AttemptsByQuiz(ctx, quizID)
}

// CancelResult discards one user's recorded attempt so they can retake the
// quiz. Author only.
func (s *CatalogService) CancelResult(ctx context.Context, quizID, userID, callerID string) error {
	quiz, err := s.repo.QuizByID(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.CreatorID != callerID {
		return domain.ErrForbidden
	}
	return s.repo.DeleteAttempt(ctx, quizID, userID)
}

// UserProgress lists the quizzes a user has completed, newest first.
func (s *CatalogService) UserProgress(ctx context.Context, userID string) ([]domain.ProgressEntry, error) {
	attempts, err := s.repo.AttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.ProgressEntry, 0, len(attempts))
	for _, a := range attempts {
		entry := domain.ProgressEntry{
			QuizID:         a.QuizID,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			SubmittedAt:    a.SubmittedAt,
		}
		if quiz, err := s.repo.QuizByID(ctx, a.QuizID); err == nil {
			entry.Title = quiz.Title
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.After(entries[j].SubmittedAt)
	})
	return entries, nil
}

// QuizStats summarizes attempt counts and average scores per quiz.
func (s *CatalogService) QuizStats(ctx context.Context) ([]domain.QuizStats, error) {
	quizzes, err := s.repo.Quizzes(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]domain.QuizStats, 0, len(quizzes))
	for _, quiz := range quizzes {
		attempts, err := s.repo.AttemptsByQuiz(ctx, quiz.ID)
		if err != nil {
			return nil, err
		}
		st := domain.QuizStats{QuizID: quiz.ID, Title: quiz.Title, Attempts: len(attempts)}
		if len(attempts) > 0 {
			sum := 0
			for _, a := range attempts {
				sum += a.Score
			}
			st.AverageScore = float64(sum) / float64(len(attempts))
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func validateQuiz(quiz domain.CatalogQuiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", domain.ErrInvalidInput)
	}
	for i, q := range quiz.Questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", domain.ErrInvalidInput, i+1)
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("%w: question %d has an out-of-range correct option", domain.ErrInvalidInput, i+1)
		}
	}
	return nil
}
