package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizroom-service/internal/domain"
)

const uniqueViolation = "23505"

// CatalogRepository stores the asynchronous quiz catalogue in Postgres.
// Question and answer lists ride as JSONB; everything queried rides as
// columns.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateUser(ctx context.Context, user domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, created_at) VALUES ($1, $2, $3)`,
		user.ID, user.Name, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrNameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UserByName(ctx context.Context, name string) (domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM users WHERE name=$1`, name))
}

func (r *CatalogRepository) User(ctx context.Context, id string) (domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM users WHERE id=$1`, id))
}

func (r *CatalogRepository) scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *CatalogRepository) SaveQuiz(ctx context.Context, quiz domain.CatalogQuiz) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO catalog_quizzes (id, title, description, questions, has_time_limit, creator_id, creator_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			questions=EXCLUDED.questions,
			has_time_limit=EXCLUDED.has_time_limit`,
		quiz.ID, quiz.Title, quiz.Description, questions, quiz.HasTimeLimit,
		quiz.CreatorID, quiz.CreatorName, quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (r *CatalogRepository) QuizByID(ctx context.Context, id string) (domain.CatalogQuiz, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, questions, has_time_limit, creator_id, creator_name, created_at
		FROM catalog_quizzes WHERE id=$1`, id)
	quiz, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CatalogQuiz{}, domain.ErrQuizNotFound
		}
		return domain.CatalogQuiz{}, err
	}
	return quiz, nil
}

func (r *CatalogRepository) Quizzes(ctx context.Context) ([]domain.CatalogQuiz, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, questions, has_time_limit, creator_id, creator_name, created_at
		FROM catalog_quizzes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	all := make([]domain.CatalogQuiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, quiz)
	}
	return all, rows.Err()
}

func scanQuiz(row pgx.Row) (domain.CatalogQuiz, error) {
	var quiz domain.CatalogQuiz
	var questions []byte
	if err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &questions,
		&quiz.HasTimeLimit, &quiz.CreatorID, &quiz.CreatorName, &quiz.CreatedAt); err != nil {
		return domain.CatalogQuiz{}, err
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return domain.CatalogQuiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return quiz, nil
}

func (r *CatalogRepository) DeleteQuiz(ctx context.Context, id string) error {
	// Attempts go with the quiz via ON DELETE CASCADE.
	tag, err := r.pool.Exec(ctx, `DELETE FROM catalog_quizzes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (r *CatalogRepository) UpsertAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO attempts (id, quiz_id, user_id, user_name, answers, score, total_questions, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (quiz_id, user_id) DO UPDATE SET
			id=EXCLUDED.id,
			user_name=EXCLUDED.user_name,
			answers=EXCLUDED.answers,
			score=EXCLUDED.score,
			total_questions=EXCLUDED.total_questions,
			submitted_at=EXCLUDED.submitted_at`,
		attempt.ID, attempt.QuizID, attempt.UserID, attempt.UserName, answers,
		attempt.Score, attempt.TotalQuestions, attempt.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (r *CatalogRepository) AttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	return r.queryAttempts(ctx, `
		SELECT id, quiz_id, user_id, user_name, answers, score, total_questions, submitted_at
		FROM attempts WHERE quiz_id=$1 ORDER BY submitted_at`, quizID)
}

func (r *CatalogRepository) AttemptsByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	return r.queryAttempts(ctx, `
		SELECT id, quiz_id, user_id, user_name, answers, score, total_questions, submitted_at
		FROM attempts WHERE user_id=$1 ORDER BY submitted_at`, userID)
}

func (r *CatalogRepository) queryAttempts(ctx context.Context, query, arg string) ([]domain.Attempt, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		var a domain.Attempt
		var answers []byte
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.UserName, &answers,
			&a.Score, &a.TotalQuestions, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *CatalogRepository) DeleteAttempt(ctx context.Context, quizID, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attempts WHERE quiz_id=$1 AND user_id=$2`, quizID, userID)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}
