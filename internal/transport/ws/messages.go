package ws

import (
	"encoding/json"

	"quizroom-service/internal/domain"
)

// Inbound (client → server) message types. Outbound names live in the app
// package next to their payloads, since the engine emits them.
const (
	MsgCreateRoom       = "create-room"
	MsgJoinRoom         = "join-room"
	MsgSaveQuestions    = "save-questions"
	MsgStartQuiz        = "start-quiz"
	MsgSubmitAnswer     = "submit-answer"
	MsgRequestRoomState = "request-room-state"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type createRoomPayload struct {
	RoomID        string `json:"roomId"`
	PresenterName string `json:"presenterName"`
	Reconnect     bool   `json:"reconnect"`
}

type joinRoomPayload struct {
	RoomID             string `json:"roomId"`
	DisplayName        string `json:"displayName"`
	Reconnect          bool   `json:"reconnect"`
	PriorParticipantID string `json:"priorParticipantId"`
}

type saveQuestionsPayload struct {
	RoomID    string            `json:"roomId"`
	Questions []domain.Question `json:"questions"`
}

type startQuizPayload struct {
	RoomID    string            `json:"roomId"`
	Questions []domain.Question `json:"questions"`
}

type submitAnswerPayload struct {
	RoomID            string `json:"roomId"`
	ChosenOptionIndex int    `json:"chosenOptionIndex"`
}

type requestRoomStatePayload struct {
	RoomID      string `json:"roomId"`
	IsPresenter bool   `json:"isPresenter"`
}
