package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

// APIHandler exposes the asynchronous quiz catalogue over REST. The
// authorization model is the catalogue's only rule: callers identify
// themselves by their user id and only the original author may edit,
// delete, or inspect a quiz's results.
type APIHandler struct {
	catalog *app.CatalogService
	logger  *slog.Logger
}

func NewAPIHandler(catalog *app.CatalogService, logger *slog.Logger) *APIHandler {
	return &APIHandler{catalog: catalog, logger: logger}
}

// Register mounts the catalogue routes.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/async/register-user", h.registerUser)
	mux.HandleFunc("POST /api/async/login-user", h.loginUser)
	mux.HandleFunc("GET /api/async/quizzes", h.listQuizzes)
	mux.HandleFunc("GET /api/async/quiz/{id}", h.getQuiz)
	mux.HandleFunc("POST /api/async/create-quiz", h.createQuiz)
	mux.HandleFunc("POST /api/async/update-quiz", h.updateQuiz)
	mux.HandleFunc("POST /api/async/delete-quiz", h.deleteQuiz)
	mux.HandleFunc("POST /api/async/submit-quiz", h.submitQuiz)
	mux.HandleFunc("GET /api/async/user-progress", h.userProgress)
	mux.HandleFunc("GET /api/async/quiz-results/{id}", h.quizResults)
	mux.HandleFunc("POST /api/async/cancel-student-result", h.cancelResult)
	mux.HandleFunc("GET /api/async/quiz-stats", h.quizStats)
}

type namePayload struct {
	Name string `json:"name"`
}

func (h *APIHandler) registerUser(w http.ResponseWriter, r *http.Request) {
	var p namePayload
	if !h.readJSON(w, r, &p) {
		return
	}
	user, err := h.catalog.RegisterUser(r.Context(), p.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"userId": user.ID, "name": user.Name})
}

func (h *APIHandler) loginUser(w http.ResponseWriter, r *http.Request) {
	var p namePayload
	if !h.readJSON(w, r, &p) {
		return
	}
	user, err := h.catalog.LoginUser(r.Context(), p.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"userId": user.ID, "name": user.Name})
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.Quizzes(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"quizzes": quizzes})
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.catalog.Quiz(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"quiz": quiz})
}

type quizPayload struct {
	QuizID       string            `json:"quizId"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Questions    []domain.Question `json:"questions"`
	HasTimeLimit bool              `json:"hasTimeLimit"`
	CreatorID    string            `json:"creatorId"`
}

func (h *APIHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var p quizPayload
	if !h.readJSON(w, r, &p) {
		return
	}
	quiz, err := h.catalog.CreateQuiz(r.Context(), domain.CatalogQuiz{
		Title:        p.Title,
		Description:  p.Description,
		Questions:    p.Questions,
		HasTimeLimit: p.HasTimeLimit,
		CreatorID:    p.CreatorID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"quiz": quiz})
}

func (h *APIHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var p quizPayload
	if !h.readJSON(w, r, &p) {
		return
	}
	quiz, err := h.catalog.UpdateQuiz(r.Context(), domain.CatalogQuiz{
		ID:           p.QuizID,
		Title:        p.Title,
		Description:  p.Description,
		Questions:    p.Questions,
		HasTimeLimit: p.HasTimeLimit,
	}, p.CreatorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"quiz": quiz})
}

func (h *APIHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	var p struct {
		QuizID    string `json:"quizId"`
		CreatorID string `json:"creatorId"`
	}
	if !h.readJSON(w, r, &p) {
		return
	}
	if err := h.catalog.DeleteQuiz(r.Context(), p.QuizID, p.CreatorID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, nil)
}

func (h *APIHandler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var p struct {
		QuizID  string                 `json:"quizId"`
		UserID  string                 `json:"userId"`
		Answers []domain.AttemptAnswer `json:"answers"`
	}
	if !h.readJSON(w, r, &p) {
		return
	}
	attempt, err := h.catalog.SubmitAttempt(r.Context(), p.QuizID, p.UserID, p.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{
		"score":          attempt.Score,
		"totalQuestions": attempt.TotalQuestions,
	})
}

func (h *APIHandler) userProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.writeStatus(w, http.StatusBadRequest, "userId is required")
		return
	}
	progress, err := h.catalog.UserProgress(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"progress": progress})
}

func (h *APIHandler) quizResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.catalog.QuizResults(r.Context(), r.PathValue("id"), r.URL.Query().Get("creatorId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"results": results})
}

func (h *APIHandler) cancelResult(w http.ResponseWriter, r *http.Request) {
	var p struct {
		QuizID    string `json:"quizId"`
		UserID    string `json:"userId"`
		CreatorID string `json:"creatorId"`
	}
	if !h.readJSON(w, r, &p) {
		return
	}
	if err := h.catalog.CancelResult(r.Context(), p.QuizID, p.UserID, p.CreatorID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, nil)
}

func (h *APIHandler) quizStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.QuizStats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOK(w, map[string]any{"stats": stats})
}

func (h *APIHandler) readJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		h.writeStatus(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *APIHandler) writeOK(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNameTaken):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		status = http.StatusNotFound
	default:
		h.logger.Error("catalogue request failed", "error", err)
		h.writeStatus(w, status, "internal error")
		return
	}
	h.writeStatus(w, status, err.Error())
}

func (h *APIHandler) writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
