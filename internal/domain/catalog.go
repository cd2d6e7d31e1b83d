package domain

import "time"

// User is a registered author/taker in the asynchronous catalogue.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CatalogQuiz is an authored quiz anyone can complete independently.
// Questions reuse the live-room shape.
type CatalogQuiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Questions    []Question `json:"questions"`
	HasTimeLimit bool       `json:"hasTimeLimit"`
	CreatorID    string     `json:"creatorId"`
	CreatorName  string     `json:"creatorName"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// AttemptAnswer is one answer inside a submitted attempt.
type AttemptAnswer struct {
	QuestionIndex int `json:"questionIndex"`
	ChosenOption  int `json:"chosenOptionIndex"`
}

// Attempt is a completed pass over a catalogue quiz. Score is computed
// server-side against the stored quiz, never taken from the client.
type Attempt struct {
	ID             string          `json:"id"`
	QuizID         string          `json:"quizId"`
	UserID         string          `json:"userId"`
	UserName       string          `json:"userName"`
	Answers        []AttemptAnswer `json:"answers"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	SubmittedAt    time.Time       `json:"submittedAt"`
}

// QuizStats summarizes attempts for one catalogue quiz.
type QuizStats struct {
	QuizID       string  `json:"quizId"`
	Title        string  `json:"title"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
}

// ProgressEntry is one completed quiz in a user's progress view.
type ProgressEntry struct {
	QuizID         string    `json:"quizId"`
	Title          string    `json:"title"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// ScoreAttempt grades answers against the quiz: one point per question
// whose chosen option matches, unanswered counts zero. A repeated question
// index keeps the last submitted answer.
func ScoreAttempt(quiz CatalogQuiz, answers []AttemptAnswer) int {
	final := make(map[int]int, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(quiz.Questions) {
			continue
		}
		final[a.QuestionIndex] = a.ChosenOption
	}
	score := 0
	for idx, chosen := range final {
		if quiz.Questions[idx].CorrectOption == chosen {
			score++
		}
	}
	return score
}
