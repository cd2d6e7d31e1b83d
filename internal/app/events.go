package app

import (
	"time"

	"quizroom-service/internal/domain"
)

// Outbound event names. These are the realtime wire vocabulary; inbound
// names live with the websocket transport that parses them.
const (
	EvtRoomCreated         = "room-created"
	EvtRoomReconnected     = "room-reconnected"
	EvtJoinedRoom          = "joined-room"
	EvtRoomError           = "room-error"
	EvtRoomNotFound        = "room-not-found"
	EvtRoomState           = "room-state"
	EvtParticipantJoined   = "participant-joined"
	EvtParticipantsUpdated = "participants-updated"
	EvtQuizStarting        = "quiz-starting"
	EvtCountdownUpdate     = "countdown-update"
	EvtQuestionStarted     = "question-started"
	EvtAnswerReceived      = "answer-received"
	EvtQuestionEnded       = "question-ended"
	EvtQuizEnded           = "quiz-ended"

	// EvtRoomClosed is reserved: presenter disconnection keeps the room
	// alive awaiting reconnection, so nothing emits it today.
	EvtRoomClosed = "room-closed"
)

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

type RoomReconnectedPayload struct {
	RoomID         string                `json:"roomId"`
	Participants   []*domain.Participant `json:"participants"`
	Questions      []domain.Question     `json:"questions"`
	Status         domain.RoomStatus     `json:"status"`
	ActiveQuestion *domain.Question      `json:"activeQuestion"`
	ActiveIndex    int                   `json:"activeQuestionIndex"`
	QuestionNumber int                   `json:"questionNumber"`
	FinalRanking   []domain.RankingEntry `json:"finalRanking,omitempty"`
	FinalRankingAt *time.Time            `json:"finalRankingAt,omitempty"`
}

type JoinedRoomPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
	Reconnected bool   `json:"reconnected"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// RoomStatePayload is role-dependent: the roster and question set are only
// included in the presenter's view.
type RoomStatePayload struct {
	Status         domain.RoomStatus     `json:"status"`
	ActiveQuestion *domain.Question      `json:"activeQuestion"`
	ActiveIndex    int                   `json:"activeQuestionIndex"`
	QuestionNumber int                   `json:"questionNumber"`
	Participants   []*domain.Participant `json:"participants,omitempty"`
	Questions      []domain.Question     `json:"questions,omitempty"`
	FinalRanking   []domain.RankingEntry `json:"finalRanking,omitempty"`
}

type ParticipantsPayload struct {
	Participants []*domain.Participant `json:"participants"`
}

type CountdownPayload struct {
	Countdown int `json:"countdown"`
}

type QuestionStartedPayload struct {
	Question         domain.Question `json:"question"`
	QuestionNumber   int             `json:"questionNumber"`
	TotalQuestions   int             `json:"totalQuestions"`
	TimeLimitSeconds int             `json:"timeLimitSeconds"`
}

type AnswerReceivedPayload struct {
	ParticipantID   string `json:"participantId"`
	ParticipantName string `json:"participantName"`
}

type QuestionEndedPayload struct {
	CorrectOption int                     `json:"correctOptionIndex"`
	Results       []domain.QuestionResult `json:"results"`
}

type QuizEndedPayload struct {
	Ranking    []domain.RankingEntry `json:"ranking"`
	FinishedAt time.Time             `json:"finishedAt"`
}
