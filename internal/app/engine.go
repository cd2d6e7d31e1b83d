package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quizroom-service/internal/domain"
)

// SessionStore abstracts how live room sessions and the connection index
// are stored (in-memory today; the interface keeps the engine testable).
type SessionStore interface {
	// GetOrCreate returns the session for roomID, creating it from the
	// factory when absent. The second result reports whether it was created.
	GetOrCreate(roomID string, create func() *domain.Room) (*RoomSession, bool)
	Get(roomID string) (*RoomSession, bool)
	Sessions() []*RoomSession
	Bind(connID string, ref domain.ConnRef)
	Lookup(connID string) (domain.ConnRef, bool)
	Unbind(connID string)
}

// Transport addresses a single connection; the engine composes room
// broadcasts from the roster plus the presenter connection.
type Transport interface {
	Send(connID, event string, payload any)
}

// SnapshotStore persists the full set of room snapshots. Writes are
// best-effort: the engine logs failures and plays on from memory.
type SnapshotStore interface {
	Save(ctx context.Context, rooms map[string]domain.RoomSnapshot) error
	Load(ctx context.Context) (map[string]domain.RoomSnapshot, error)
}

// Timing bundles the engine's scheduled delays so tests can shrink them.
type Timing struct {
	// CountdownFrom is the value broadcast with quiz-starting; ticks count
	// down from there to 1 before the first question opens.
	CountdownFrom int
	// TickInterval separates countdown ticks.
	TickInterval time.Duration
	// ResultsPause is how long results stay up before the next question.
	ResultsPause time.Duration
	// QuestionUnit converts a question's TimeLimitSeconds into a duration.
	QuestionUnit time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		CountdownFrom: 5,
		TickInterval:  time.Second,
		ResultsPause:  3 * time.Second,
		QuestionUnit:  time.Second,
	}
}

// RoomEngine drives the live room state machine: creation, joins,
// reconnection, question progression, answer intake, scoring, ranking and
// teardown. All room mutation funnels through here, one event at a time
// per room.
type RoomEngine struct {
	store     SessionStore
	transport Transport
	snapshots SnapshotStore
	logger    *slog.Logger
	timing    Timing
	now       func() time.Time

	snapMu    sync.Mutex
	snapCache map[string]domain.RoomSnapshot
	snapSeq   uint64

	saveMu   sync.Mutex
	savedSeq uint64
}

func NewRoomEngine(store SessionStore, transport Transport, snapshots SnapshotStore, logger *slog.Logger) *RoomEngine {
	return NewRoomEngineWithTiming(store, transport, snapshots, logger, DefaultTiming())
}

// NewRoomEngineWithTiming lets tests run the countdown, question expiry and
// results pause at millisecond scale.
func NewRoomEngineWithTiming(store SessionStore, transport Transport, snapshots SnapshotStore, logger *slog.Logger, timing Timing) *RoomEngine {
	return &RoomEngine{
		store:     store,
		transport: transport,
		snapshots: snapshots,
		logger:    logger,
		timing:    timing,
		now:       time.Now,
		snapCache: make(map[string]domain.RoomSnapshot),
	}
}

// Restore loads the persisted snapshot set into the store. Mid-run rooms
// come back in waiting per the snapshot policy; a load failure starts empty
// rather than refusing to boot.
func (e *RoomEngine) Restore(ctx context.Context) {
	snaps, err := e.snapshots.Load(ctx)
	if err != nil {
		e.logger.Error("snapshot load failed, starting empty", "error", err)
		return
	}
	for id, snap := range snaps {
		room := snap.Restore()
		e.store.GetOrCreate(id, func() *domain.Room { return room })
		e.snapMu.Lock()
		e.snapCache[id] = room.Snapshot()
		e.snapMu.Unlock()
	}
	if len(snaps) > 0 {
		e.logger.Info("rooms restored from snapshot", "count", len(snaps))
	}
}

// Shutdown cancels every pending room timer.
func (e *RoomEngine) Shutdown() {
	for _, sess := range e.store.Sessions() {
		sess.mu.Lock()
		sess.cancelTimerLocked()
		sess.mu.Unlock()
	}
}

// CreateRoom attaches the caller as presenter, creating the room when the
// code is unknown. It never fails: an existing room means reconnection, and
// the last attacher wins regardless of room status.
func (e *RoomEngine) CreateRoom(connID, roomID, presenterName string) {
	sess, created := e.store.GetOrCreate(roomID, func() *domain.Room {
		return domain.NewRoom(roomID, connID, presenterName)
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	room := sess.room

	if !created {
		room.AttachPresenter(connID, presenterName)
	}
	e.store.Bind(connID, domain.ConnRef{RoomID: roomID, Role: domain.RolePresenter})

	if created {
		e.transport.Send(connID, EvtRoomCreated, RoomCreatedPayload{RoomID: roomID})
		e.logger.Info("room created", "roomId", roomID, "presenter", presenterName)
	} else {
		payload := RoomReconnectedPayload{
			RoomID:         roomID,
			Participants:   room.Participants,
			Questions:      room.Questions,
			Status:         room.Status,
			ActiveQuestion: room.ActiveQuestion,
			ActiveIndex:    room.ActiveIndex,
			QuestionNumber: room.QuestionNumber(),
			FinalRanking:   room.FinalRanking,
		}
		if !room.FinalRankingAt.IsZero() {
			at := room.FinalRankingAt
			payload.FinalRankingAt = &at
		}
		e.transport.Send(connID, EvtRoomReconnected, payload)
		e.logger.Info("presenter reattached", "roomId", roomID, "presenter", presenterName)
	}
	e.persistLocked(sess)
}

// JoinRoom adds the caller to the roster. A matching priorParticipantId
// rebinds the old record in place (score and responses kept) and bypasses
// the already-started guard; a stale prior id falls back to a fresh join.
func (e *RoomEngine) JoinRoom(connID, roomID, displayName, priorID string) error {
	sess, ok := e.store.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	room := sess.room

	if priorID != "" {
		if p, ok := room.RebindParticipant(priorID, connID); ok {
			e.store.Unbind(priorID)
			e.store.Bind(connID, domain.ConnRef{RoomID: roomID, Role: domain.RoleParticipant})
			e.transport.Send(connID, EvtJoinedRoom, JoinedRoomPayload{RoomID: roomID, DisplayName: p.Name, Reconnected: true})
			e.transport.Send(connID, EvtRoomState, e.statePayload(room, false))
			e.logger.Info("participant reconnected", "roomId", roomID, "name", p.Name)
			e.persistLocked(sess)
			return nil
		}
		// Roster already purged that participant; treat as a new join.
	}

	p, err := room.AddParticipant(connID, displayName)
	if err != nil {
		return err
	}
	e.store.Bind(connID, domain.ConnRef{RoomID: roomID, Role: domain.RoleParticipant})

	e.transport.Send(connID, EvtJoinedRoom, JoinedRoomPayload{RoomID: roomID, DisplayName: p.Name})
	if room.PresenterConnID != "" {
		e.transport.Send(room.PresenterConnID, EvtParticipantJoined, ParticipantsPayload{Participants: room.Participants})
	}
	e.broadcastLocked(room, EvtParticipantsUpdated, ParticipantsPayload{Participants: room.Participants})
	e.logger.Info("participant joined", "roomId", roomID, "name", displayName)
	e.persistLocked(sess)
	return nil
}

// SaveQuestions replaces the authored question set. Best-effort by
// contract: an unknown room, a non-presenter caller, or a run already
// underway is silently ignored.
func (e *RoomEngine) SaveQuestions(connID, roomID string, questions []domain.Question) {
	sess, ok := e.store.Get(roomID)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	room := sess.room

	if !room.IsPresenter(connID) || room.Status != domain.StatusWaiting {
		return
	}
	room.SetQuestions(questions)
	e.logger.Info("questions saved", "roomId", roomID, "count", len(questions))
	e.persistLocked(sess)
}

// StartQuiz arms a new run and drives the countdown. No-op unless the
// caller is the presenter. A non-empty questions slice overwrites the
// authored set; otherwise the previously saved one is used.
func (e *RoomEngine) StartQuiz(connID, roomID string, questions []domain.Question) {
	sess, ok := e.store.Get(roomID)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	room := sess.room

	if !room.IsPresenter(connID) {
		return
	}
	if len(room.Questions) == 0 && len(questions) == 0 {
		return
	}
	room.BeginRun(questions)
	e.logger.Info("quiz starting", "roomId", roomID, "questions", len(room.Questions))
	e.persistLocked(sess)

	e.broadcastLocked(room, EvtQuizStarting, CountdownPayload{Countdown: e.timing.CountdownFrom})
	e.armCountdownLocked(sess, e.timing.CountdownFrom-1)
}

// armCountdownLocked schedules the next countdown tick. Tick values above
// zero are broadcast; zero opens the first question.
func (e *RoomEngine) armCountdownLocked(sess *RoomSession, next int) {
	sess.armLocked(e.timing.TickInterval, func() {
		room := sess.room
		if room.Status != domain.StatusCountdown {
			return
		}
		if next > 0 {
			e.broadcastLocked(room, EvtCountdownUpdate, CountdownPayload{Countdown: next})
			e.armCountdownLocked(sess, next-1)
			return
		}
		e.startQuestionLocked(sess)
	})
}

// startQuestionLocked opens the question at the active index, or finishes
// the run when the set is exhausted.
func (e *RoomEngine) startQuestionLocked(sess *RoomSession) {
	room := sess.room
	if !room.StartQuestion(e.now()) {
		e.finishLocked(sess)
		return
	}
	q := room.ActiveQuestion
	sess.armLocked(time.Duration(q.TimeLimitSeconds)*e.timing.QuestionUnit, func() {
		e.endQuestionLocked(sess)
	})
	e.broadcastLocked(room, EvtQuestionStarted, QuestionStartedPayload{
		Question:         *q,
		QuestionNumber:   room.QuestionNumber(),
		TotalQuestions:   len(room.Questions),
		TimeLimitSeconds: q.TimeLimitSeconds,
	})
	e.persistLocked(sess)
}

// SubmitAnswer upserts the caller's response for the active question. The
// presenter is told a (re)submission arrived; once every participant has an
// answer recorded the question ends early, beating the expiry timer.
func (e *RoomEngine) SubmitAnswer(connID, roomID string, chosenOption int) {
	sess, ok := e.store.Get(roomID)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	room := sess.room

	if room.Status != domain.StatusQuestion {
		return
	}
	p, ok := room.Participant(connID)
	if !ok {
		return
	}
	room.RecordResponse(connID, chosenOption)
	if room.PresenterConnID != "" {
		e.transport.Send(room.PresenterConnID, EvtAnswerReceived, AnswerReceivedPayload{
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
		})
	}
	e.persistLocked(sess)

	if n := room.AnsweredCount(); n > 0 && n == len(room.Participants) {
		e.endQuestionLocked(sess)
	}
}

// endQuestionLocked closes the active question exactly once. Both the
// all-answered path and the expiry timer land here; the status check plus
// timer cancellation make the loser of that race a no-op.
func (e *RoomEngine) endQuestionLocked(sess *RoomSession) {
	room := sess.room
	if room.Status != domain.StatusQuestion {
		return
	}
	sess.cancelTimerLocked()

	correct := 0
	if room.ActiveQuestion != nil {
		correct = room.ActiveQuestion.CorrectOption
	}
	results := room.EndQuestion()
	e.broadcastLocked(room, EvtQuestionEnded, QuestionEndedPayload{CorrectOption: correct, Results: results})
	e.persistLocked(sess)

	sess.armLocked(e.timing.ResultsPause, func() {
		if sess.room.Status != domain.StatusResults {
			return
		}
		sess.room.ActiveIndex++
		e.startQuestionLocked(sess)
	})
}

// finishLocked computes and broadcasts the final ranking.
func (e *RoomEngine) finishLocked(sess *RoomSession) {
	room := sess.room
	ranking := room.Finish(e.now())
	e.broadcastLocked(room, EvtQuizEnded, QuizEndedPayload{Ranking: ranking, FinishedAt: room.FinalRankingAt})
	e.logger.Info("quiz finished", "roomId", room.ID, "participants", len(ranking))
	e.persistLocked(sess)
}

// RoomState replies with the caller's role-dependent view of the room.
func (e *RoomEngine) RoomState(connID, roomID string, presenterView bool) error {
	sess, ok := e.store.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	e.transport.Send(connID, EvtRoomState, e.statePayload(sess.room, presenterView))
	return nil
}

// Disconnect handles a dropped connection. A presenter detaches but the
// room lives on awaiting reconnection; a participant is removed outright
// and the roster change is broadcast.
func (e *RoomEngine) Disconnect(connID string) {
	ref, ok := e.store.Lookup(connID)
	if !ok {
		return
	}
	e.store.Unbind(connID)

	sess, ok := e.store.Get(ref.RoomID)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	room := sess.room

	switch ref.Role {
	case domain.RolePresenter:
		if room.PresenterConnID != connID {
			return // superseded by a later attacher
		}
		room.PresenterConnID = ""
		if room.Status == domain.StatusCountdown {
			// Nobody is left to drive the run; stop the countdown before
			// the first question opens and put the room back in waiting.
			sess.cancelTimerLocked()
			room.Status = domain.StatusWaiting
			e.broadcastLocked(room, EvtRoomState, e.statePayload(room, false))
		}
		e.logger.Info("presenter detached", "roomId", room.ID)
	case domain.RoleParticipant:
		if !room.RemoveParticipant(connID) {
			return
		}
		e.broadcastLocked(room, EvtParticipantsUpdated, ParticipantsPayload{Participants: room.Participants})
		// The departed participant may have been the last one holding the
		// question open.
		if room.Status == domain.StatusQuestion && len(room.Participants) > 0 &&
			room.AnsweredCount() == len(room.Participants) {
			e.endQuestionLocked(sess)
		}
		e.logger.Info("participant left", "roomId", room.ID)
	}
	e.persistLocked(sess)
}

func (e *RoomEngine) statePayload(room *domain.Room, presenterView bool) RoomStatePayload {
	payload := RoomStatePayload{
		Status:         room.Status,
		ActiveQuestion: room.ActiveQuestion,
		ActiveIndex:    room.ActiveIndex,
		QuestionNumber: room.QuestionNumber(),
		FinalRanking:   room.FinalRanking,
	}
	if presenterView {
		payload.Participants = room.Participants
		payload.Questions = room.Questions
	}
	return payload
}

// broadcastLocked sends an event to every connection in the room: the
// roster plus the presenter, when attached.
func (e *RoomEngine) broadcastLocked(room *domain.Room, event string, payload any) {
	if room.PresenterConnID != "" {
		e.transport.Send(room.PresenterConnID, event, payload)
	}
	for _, p := range room.Participants {
		e.transport.Send(p.ID, event, payload)
	}
}

// persistLocked snapshots the mutated room into the engine's cache and
// hands the full set to the snapshot store off the event path. A stale
// write is skipped by sequence so a slow save cannot clobber a newer one;
// failures are logged and the in-memory state stays authoritative.
func (e *RoomEngine) persistLocked(sess *RoomSession) {
	e.snapMu.Lock()
	e.snapCache[sess.room.ID] = sess.room.Snapshot()
	e.snapSeq++
	seq := e.snapSeq
	all := make(map[string]domain.RoomSnapshot, len(e.snapCache))
	for id, snap := range e.snapCache {
		all[id] = snap
	}
	e.snapMu.Unlock()

	go func() {
		e.saveMu.Lock()
		defer e.saveMu.Unlock()
		if seq <= e.savedSeq {
			return
		}
		e.savedSeq = seq
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.snapshots.Save(ctx, all); err != nil {
			e.logger.Error("snapshot save failed", "error", err)
		}
	}()
}
