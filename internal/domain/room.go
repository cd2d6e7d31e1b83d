package domain

import (
	"sort"
	"time"
)

// RoomStatus tracks where a room is in its run.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusCountdown RoomStatus = "countdown"
	StatusQuestion  RoomStatus = "question"
	StatusResults   RoomStatus = "results"
	StatusFinished  RoomStatus = "finished"
)

// Role identifies what a connection is doing in a room.
type Role string

const (
	RolePresenter   Role = "presenter"
	RoleParticipant Role = "participant"
)

// ConnRef is the connection-index entry: which room a connection belongs
// to and in what capacity.
type ConnRef struct {
	RoomID string
	Role   Role
}

// Question is author-supplied MCQ content.
type Question struct {
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	CorrectOption    int      `json:"correctOptionIndex"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// Participant is a joined connection accumulating score. ID is the
// connection id and changes across reconnects.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Response is one participant's answer to one question. At most one per
// question index; resubmitting overwrites.
type Response struct {
	QuestionIndex int `json:"questionIndex"`
	ChosenOption  int `json:"chosenOptionIndex"`
}

// RankingEntry is one row of the final scoreboard.
type RankingEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Total int    `json:"total"`
}

// QuestionResult is one participant's outcome for a single question.
// ChosenOption is nil when they never answered.
type QuestionResult struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"participantName"`
	Correct       bool   `json:"isCorrect"`
	ChosenOption  *int   `json:"chosenOptionIndex"`
}

// Room is the live session aggregate. It is pure state: all locking and
// timer ownership live in the engine's session wrapper so the aggregate
// stays serializable.
type Room struct {
	ID              string
	PresenterConnID string
	PresenterName   string
	Participants    []*Participant
	Status          RoomStatus
	Questions       []Question
	ActiveIndex     int
	ActiveQuestion  *Question
	Responses       map[string][]Response
	// QuestionStartedAt is diagnostic only; the timer subsystem is the
	// authority on question expiry.
	QuestionStartedAt time.Time
	FinalRanking      []RankingEntry
	FinalRankingAt    time.Time
}

// NewRoom creates a room in the waiting state with the caller attached as
// presenter.
func NewRoom(id, presenterConnID, presenterName string) *Room {
	return &Room{
		ID:              id,
		PresenterConnID: presenterConnID,
		PresenterName:   presenterName,
		Participants:    make([]*Participant, 0),
		Status:          StatusWaiting,
		Questions:       make([]Question, 0),
		Responses:       make(map[string][]Response),
	}
}

// AttachPresenter rebinds the presenter connection. Last attacher wins; the
// rest of the room state is untouched.
func (r *Room) AttachPresenter(connID, name string) {
	r.PresenterConnID = connID
	r.PresenterName = name
}

// IsPresenter reports whether connID is the current presenter connection.
func (r *Room) IsPresenter(connID string) bool {
	return r.PresenterConnID != "" && r.PresenterConnID == connID
}

// Participant returns the participant bound to connID.
func (r *Room) Participant(connID string) (*Participant, bool) {
	for _, p := range r.Participants {
		if p.ID == connID {
			return p, true
		}
	}
	return nil, false
}

// AddParticipant appends a fresh participant. Joining is only allowed while
// the room is waiting; reconnection goes through RebindParticipant instead.
func (r *Room) AddParticipant(connID, name string) (*Participant, error) {
	if r.Status != StatusWaiting {
		return nil, ErrQuizAlreadyStarted
	}
	p := &Participant{ID: connID, Name: name}
	r.Participants = append(r.Participants, p)
	return p, nil
}

// RebindParticipant moves an existing participant record to a new
// connection id, keeping score and responses. It bypasses the
// already-started guard: this is the reconnection path.
func (r *Room) RebindParticipant(priorID, connID string) (*Participant, bool) {
	p, ok := r.Participant(priorID)
	if !ok {
		return nil, false
	}
	p.ID = connID
	if rs, ok := r.Responses[priorID]; ok {
		delete(r.Responses, priorID)
		r.Responses[connID] = rs
	}
	return p, true
}

// RemoveParticipant drops a participant and their responses entirely.
func (r *Room) RemoveParticipant(connID string) bool {
	for i, p := range r.Participants {
		if p.ID == connID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			delete(r.Responses, connID)
			return true
		}
	}
	return false
}

// SetQuestions replaces the question set wholesale. Only meaningful while
// waiting; callers enforce that.
func (r *Room) SetQuestions(qs []Question) {
	r.Questions = qs
}

// BeginRun arms the room for a fresh run: question zero, no responses, no
// ranking, countdown underway. A non-empty qs overwrites the authored set,
// so a room can be driven through a new quiz without being recreated.
func (r *Room) BeginRun(qs []Question) {
	if len(qs) > 0 {
		r.Questions = qs
	}
	r.ActiveIndex = 0
	r.ActiveQuestion = nil
	r.Responses = make(map[string][]Response)
	r.FinalRanking = nil
	r.FinalRankingAt = time.Time{}
	for _, p := range r.Participants {
		p.Score = 0
	}
	r.Status = StatusCountdown
}

// StartQuestion opens the question at ActiveIndex. It reports false when
// the set is exhausted and the room should finish instead.
func (r *Room) StartQuestion(now time.Time) bool {
	if r.ActiveIndex >= len(r.Questions) {
		return false
	}
	q := r.Questions[r.ActiveIndex]
	r.ActiveQuestion = &q
	r.QuestionStartedAt = now
	r.Status = StatusQuestion
	return true
}

// RecordResponse upserts the caller's answer for the active question.
func (r *Room) RecordResponse(connID string, option int) {
	rs := r.Responses[connID]
	for i := range rs {
		if rs[i].QuestionIndex == r.ActiveIndex {
			rs[i].ChosenOption = option
			return
		}
	}
	r.Responses[connID] = append(rs, Response{QuestionIndex: r.ActiveIndex, ChosenOption: option})
}

// responseAt returns a participant's recorded answer for a question index.
func (r *Room) responseAt(connID string, index int) (Response, bool) {
	for _, resp := range r.Responses[connID] {
		if resp.QuestionIndex == index {
			return resp, true
		}
	}
	return Response{}, false
}

// AnsweredCount counts distinct current participants with an answer
// recorded for the active question.
func (r *Room) AnsweredCount() int {
	n := 0
	for _, p := range r.Participants {
		if _, ok := r.responseAt(p.ID, r.ActiveIndex); ok {
			n++
		}
	}
	return n
}

// EndQuestion closes the active question: each participant whose final
// recorded answer matches the correct option gains one point, exactly once.
// Unanswered counts as incorrect.
func (r *Room) EndQuestion() []QuestionResult {
	results := make([]QuestionResult, 0, len(r.Participants))
	for _, p := range r.Participants {
		res := QuestionResult{ParticipantID: p.ID, Name: p.Name}
		if resp, ok := r.responseAt(p.ID, r.ActiveIndex); ok {
			chosen := resp.ChosenOption
			res.ChosenOption = &chosen
			if r.ActiveQuestion != nil && chosen == r.ActiveQuestion.CorrectOption {
				res.Correct = true
				p.Score++
			}
		}
		results = append(results, res)
	}
	r.Status = StatusResults
	return results
}

// Finish closes the run and computes the final ranking: score descending,
// stable so that equal scores keep their roster (join) order.
func (r *Room) Finish(now time.Time) []RankingEntry {
	ranking := make([]RankingEntry, 0, len(r.Participants))
	for _, p := range r.Participants {
		ranking = append(ranking, RankingEntry{Name: p.Name, Score: p.Score, Total: len(r.Questions)})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})
	r.Status = StatusFinished
	r.FinalRanking = ranking
	r.FinalRankingAt = now
	return ranking
}

// QuestionNumber is the 1-based position shown to clients.
func (r *Room) QuestionNumber() int {
	return r.ActiveIndex + 1
}
