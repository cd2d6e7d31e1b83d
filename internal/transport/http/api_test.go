package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizroom-service/internal/app"
	"quizroom-service/internal/infra/memory"
)

func newAPITestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := app.NewCatalogService(memory.NewCatalogRepository(), logger)

	mux := http.NewServeMux()
	NewAPIHandler(catalog, logger).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, server *httptest.Server, path string, body any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

func getJSON(t *testing.T, server *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func registerUser(t *testing.T, server *httptest.Server, name string) string {
	t.Helper()
	status, body := postJSON(t, server, "/api/async/register-user", map[string]any{"name": name})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("register %s: status=%d body=%+v", name, status, body)
	}
	return body["userId"].(string)
}

func createQuiz(t *testing.T, server *httptest.Server, creatorID string) string {
	t.Helper()
	status, body := postJSON(t, server, "/api/async/create-quiz", map[string]any{
		"title":     "Arithmetic",
		"creatorId": creatorID,
		"questions": []map[string]any{
			{"text": "2+2?", "options": []string{"3", "4"}, "correctOptionIndex": 1},
			{"text": "3*3?", "options": []string{"9", "6"}, "correctOptionIndex": 0},
		},
	})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("create quiz: status=%d body=%+v", status, body)
	}
	return body["quiz"].(map[string]any)["id"].(string)
}

func TestRegisterAndLogin(t *testing.T) {
	server := newAPITestServer(t)

	userID := registerUser(t, server, "Ms Chen")
	if userID == "" {
		t.Fatalf("expected a user id")
	}

	status, body := postJSON(t, server, "/api/async/register-user", map[string]any{"name": "Ms Chen"})
	if status != http.StatusConflict || body["success"] != false {
		t.Fatalf("duplicate name: status=%d body=%+v", status, body)
	}
	status, _ = postJSON(t, server, "/api/async/register-user", map[string]any{"name": "  "})
	if status != http.StatusBadRequest {
		t.Fatalf("blank name: status=%d", status)
	}

	status, body = postJSON(t, server, "/api/async/login-user", map[string]any{"name": "Ms Chen"})
	if status != http.StatusOK || body["userId"] != userID {
		t.Fatalf("login: status=%d body=%+v", status, body)
	}
	status, _ = postJSON(t, server, "/api/async/login-user", map[string]any{"name": "Nobody"})
	if status != http.StatusNotFound {
		t.Fatalf("unknown login: status=%d", status)
	}
}

func TestQuizCRUD(t *testing.T) {
	server := newAPITestServer(t)
	author := registerUser(t, server, "Ms Chen")
	other := registerUser(t, server, "Mr Soto")
	quizID := createQuiz(t, server, author)

	status, body := getJSON(t, server, "/api/async/quiz/"+quizID)
	if status != http.StatusOK {
		t.Fatalf("get quiz: status=%d body=%+v", status, body)
	}
	if body["quiz"].(map[string]any)["title"] != "Arithmetic" {
		t.Fatalf("unexpected quiz body: %+v", body)
	}
	if status, _ := getJSON(t, server, "/api/async/quiz/missing"); status != http.StatusNotFound {
		t.Fatalf("missing quiz: status=%d", status)
	}

	status, body = getJSON(t, server, "/api/async/quizzes")
	if status != http.StatusOK || len(body["quizzes"].([]any)) != 1 {
		t.Fatalf("list: status=%d body=%+v", status, body)
	}

	update := map[string]any{
		"quizId":    quizID,
		"title":     "Arithmetic v2",
		"creatorId": other,
		"questions": []map[string]any{
			{"text": "2+2?", "options": []string{"3", "4"}, "correctOptionIndex": 1},
		},
	}
	if status, _ := postJSON(t, server, "/api/async/update-quiz", update); status != http.StatusForbidden {
		t.Fatalf("non-author update: status=%d", status)
	}
	update["creatorId"] = author
	status, body = postJSON(t, server, "/api/async/update-quiz", update)
	if status != http.StatusOK || body["quiz"].(map[string]any)["title"] != "Arithmetic v2" {
		t.Fatalf("author update: status=%d body=%+v", status, body)
	}

	if status, _ := postJSON(t, server, "/api/async/delete-quiz", map[string]any{"quizId": quizID, "creatorId": other}); status != http.StatusForbidden {
		t.Fatalf("non-author delete: status=%d", status)
	}
	if status, _ := postJSON(t, server, "/api/async/delete-quiz", map[string]any{"quizId": quizID, "creatorId": author}); status != http.StatusOK {
		t.Fatalf("author delete: status=%d", status)
	}
	if status, _ := getJSON(t, server, "/api/async/quiz/"+quizID); status != http.StatusNotFound {
		t.Fatalf("deleted quiz still served: status=%d", status)
	}
}

func TestSubmitQuizAndProgress(t *testing.T) {
	server := newAPITestServer(t)
	author := registerUser(t, server, "Ms Chen")
	student := registerUser(t, server, "Dana")
	quizID := createQuiz(t, server, author)

	status, body := postJSON(t, server, "/api/async/submit-quiz", map[string]any{
		"quizId": quizID,
		"userId": student,
		"answers": []map[string]any{
			{"questionIndex": 0, "chosenOptionIndex": 1},
			{"questionIndex": 1, "chosenOptionIndex": 1},
		},
	})
	if status != http.StatusOK {
		t.Fatalf("submit: status=%d body=%+v", status, body)
	}
	if body["score"].(float64) != 1 || body["totalQuestions"].(float64) != 2 {
		t.Fatalf("expected server-side 1/2, got %+v", body)
	}

	status, body = getJSON(t, server, "/api/async/user-progress?userId="+student)
	if status != http.StatusOK {
		t.Fatalf("progress: status=%d body=%+v", status, body)
	}
	progress := body["progress"].([]any)
	if len(progress) != 1 || progress[0].(map[string]any)["score"].(float64) != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if status, _ := getJSON(t, server, "/api/async/user-progress"); status != http.StatusBadRequest {
		t.Fatalf("progress without userId: status=%d", status)
	}
}

func TestResultsAuthorOnly(t *testing.T) {
	server := newAPITestServer(t)
	author := registerUser(t, server, "Ms Chen")
	student := registerUser(t, server, "Dana")
	quizID := createQuiz(t, server, author)

	if status, _ := postJSON(t, server, "/api/async/submit-quiz", map[string]any{
		"quizId":  quizID,
		"userId":  student,
		"answers": []map[string]any{{"questionIndex": 0, "chosenOptionIndex": 1}},
	}); status != http.StatusOK {
		t.Fatalf("submit: status=%d", status)
	}

	path := fmt.Sprintf("/api/async/quiz-results/%s?creatorId=%s", quizID, student)
	if status, _ := getJSON(t, server, path); status != http.StatusForbidden {
		t.Fatalf("non-author results: status=%d", status)
	}

	path = fmt.Sprintf("/api/async/quiz-results/%s?creatorId=%s", quizID, author)
	status, body := getJSON(t, server, path)
	if status != http.StatusOK || len(body["results"].([]any)) != 1 {
		t.Fatalf("author results: status=%d body=%+v", status, body)
	}

	cancel := map[string]any{"quizId": quizID, "userId": student, "creatorId": student}
	if status, _ := postJSON(t, server, "/api/async/cancel-student-result", cancel); status != http.StatusForbidden {
		t.Fatalf("non-author cancel: status=%d", status)
	}
	cancel["creatorId"] = author
	if status, _ := postJSON(t, server, "/api/async/cancel-student-result", cancel); status != http.StatusOK {
		t.Fatalf("author cancel: status=%d", status)
	}

	status, body = getJSON(t, server, path)
	if status != http.StatusOK || len(body["results"].([]any)) != 0 {
		t.Fatalf("results after cancel: status=%d body=%+v", status, body)
	}
}

func TestQuizStats(t *testing.T) {
	server := newAPITestServer(t)
	author := registerUser(t, server, "Ms Chen")
	student := registerUser(t, server, "Dana")
	quizID := createQuiz(t, server, author)

	if status, _ := postJSON(t, server, "/api/async/submit-quiz", map[string]any{
		"quizId": quizID,
		"userId": student,
		"answers": []map[string]any{
			{"questionIndex": 0, "chosenOptionIndex": 1},
			{"questionIndex": 1, "chosenOptionIndex": 0},
		},
	}); status != http.StatusOK {
		t.Fatalf("submit: status=%d", status)
	}

	status, body := getJSON(t, server, "/api/async/quiz-stats")
	if status != http.StatusOK {
		t.Fatalf("stats: status=%d body=%+v", status, body)
	}
	stats := body["stats"].([]any)
	if len(stats) != 1 {
		t.Fatalf("expected one stats row, got %+v", stats)
	}
	row := stats[0].(map[string]any)
	if row["attempts"].(float64) != 1 || row["averageScore"].(float64) != 2 {
		t.Fatalf("unexpected stats row: %+v", row)
	}
}

func TestMalformedBody(t *testing.T) {
	server := newAPITestServer(t)
	resp, err := http.Post(server.URL+"/api/async/register-user", "application/json", bytes.NewReader([]byte("{broken")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
