package domain_test

import (
	"testing"
	"time"

	"quizroom-service/internal/domain"
)

func twoQuestions() []domain.Question {
	return []domain.Question{
		{Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1, TimeLimitSeconds: 20},
		{Text: "3*3?", Options: []string{"9", "6"}, CorrectOption: 0, TimeLimitSeconds: 20},
	}
}

func TestAddParticipantOnlyWhileWaiting(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	if _, err := room.AddParticipant("c1", "Alice"); err != nil {
		t.Fatalf("add: %v", err)
	}

	room.BeginRun(twoQuestions())
	if _, err := room.AddParticipant("c2", "Bob"); err != domain.ErrQuizAlreadyStarted {
		t.Fatalf("expected ErrQuizAlreadyStarted, got %v", err)
	}
}

func TestBeginRunResetsProgress(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	p, _ := room.AddParticipant("c1", "Alice")

	room.BeginRun(twoQuestions())
	room.StartQuestion(time.Now())
	room.RecordResponse("c1", 1)
	room.EndQuestion()
	room.Finish(time.Now())
	if p.Score != 1 || room.FinalRanking == nil {
		t.Fatalf("setup run did not score: score=%d ranking=%v", p.Score, room.FinalRanking)
	}

	room.BeginRun(nil)
	if room.Status != domain.StatusCountdown || room.ActiveIndex != 0 {
		t.Fatalf("expected fresh countdown at question zero, got %s/%d", room.Status, room.ActiveIndex)
	}
	if p.Score != 0 || len(room.Responses) != 0 || room.FinalRanking != nil {
		t.Fatalf("expected progress cleared, got score=%d responses=%v ranking=%v", p.Score, room.Responses, room.FinalRanking)
	}
	if len(room.Questions) != 2 {
		t.Fatalf("expected saved questions kept on nil restart, got %d", len(room.Questions))
	}
}

func TestRecordResponseLastWins(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.AddParticipant("c1", "Alice")
	room.BeginRun(twoQuestions())
	room.StartQuestion(time.Now())

	room.RecordResponse("c1", 0)
	room.RecordResponse("c1", 1)
	if room.AnsweredCount() != 1 {
		t.Fatalf("resubmission must not double-count, got %d", room.AnsweredCount())
	}

	results := room.EndQuestion()
	if !results[0].Correct || *results[0].ChosenOption != 1 {
		t.Fatalf("expected final answer to score, got %+v", results[0])
	}
}

func TestEndQuestionScoresOncePerParticipant(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	a, _ := room.AddParticipant("c1", "Alice")
	b, _ := room.AddParticipant("c2", "Bob")
	room.BeginRun(twoQuestions())
	room.StartQuestion(time.Now())

	room.RecordResponse("c1", 1)
	results := room.EndQuestion()
	if a.Score != 1 || b.Score != 0 {
		t.Fatalf("expected 1/0, got %d/%d", a.Score, b.Score)
	}
	if len(results) != 2 {
		t.Fatalf("expected a row per participant, got %+v", results)
	}
	for _, r := range results {
		if r.Name == "Bob" && (r.ChosenOption != nil || r.Correct) {
			t.Fatalf("expected Bob unanswered, got %+v", r)
		}
	}
}

func TestFinishRankingStable(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.AddParticipant("c1", "Alice")
	b, _ := room.AddParticipant("c2", "Bob")
	room.AddParticipant("c3", "Cara")
	room.BeginRun(twoQuestions())
	b.Score = 2

	ranking := room.Finish(time.Now())
	if ranking[0].Name != "Bob" {
		t.Fatalf("expected Bob first, got %+v", ranking)
	}
	if ranking[1].Name != "Alice" || ranking[2].Name != "Cara" {
		t.Fatalf("expected ties in join order, got %+v", ranking)
	}
	if room.Status != domain.StatusFinished || ranking[0].Total != 2 {
		t.Fatalf("unexpected finish state: %s %+v", room.Status, ranking[0])
	}
}

func TestRebindParticipantKeepsResponses(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.AddParticipant("c1", "Alice")
	room.BeginRun(twoQuestions())
	room.StartQuestion(time.Now())
	room.RecordResponse("c1", 1)

	p, ok := room.RebindParticipant("c1", "c9")
	if !ok || p.ID != "c9" {
		t.Fatalf("rebind failed: %+v %v", p, ok)
	}
	if _, stale := room.Participant("c1"); stale {
		t.Fatalf("old connection id still resolves")
	}
	if room.AnsweredCount() != 1 {
		t.Fatalf("responses lost across rebind")
	}

	if _, ok := room.RebindParticipant("never-there", "c10"); ok {
		t.Fatalf("rebinding an unknown id must fail")
	}
}

func TestRemoveParticipantDropsResponses(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.AddParticipant("c1", "Alice")
	room.BeginRun(twoQuestions())
	room.StartQuestion(time.Now())
	room.RecordResponse("c1", 1)

	if !room.RemoveParticipant("c1") {
		t.Fatalf("remove failed")
	}
	if len(room.Participants) != 0 || len(room.Responses) != 0 {
		t.Fatalf("expected roster and responses cleared, got %+v %+v", room.Participants, room.Responses)
	}
	if room.RemoveParticipant("c1") {
		t.Fatalf("second remove must report false")
	}
}

func TestStartQuestionExhaustion(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.BeginRun(twoQuestions())

	if !room.StartQuestion(time.Now()) {
		t.Fatalf("first question should open")
	}
	room.ActiveIndex = 2
	if room.StartQuestion(time.Now()) {
		t.Fatalf("exhausted set must not open a question")
	}
}

func TestSnapshotRestoreFinishedKeepsRanking(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.AddParticipant("c1", "Alice")
	room.BeginRun(twoQuestions())
	room.StartQuestion(time.Now())
	room.RecordResponse("c1", 1)
	room.EndQuestion()
	room.ActiveIndex = 2
	room.Finish(time.Now())

	restored := room.Snapshot().Restore()
	if restored.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", restored.Status)
	}
	if len(restored.FinalRanking) != 1 || restored.FinalRanking[0].Score != 1 {
		t.Fatalf("ranking lost: %+v", restored.FinalRanking)
	}
	if restored.PresenterConnID != "" {
		t.Fatalf("presenter connection must not survive a restore")
	}
}

func TestSnapshotRestoreMidRunResets(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	room.AddParticipant("c1", "Alice")
	room.SetQuestions(twoQuestions())
	room.BeginRun(nil)
	room.StartQuestion(time.Now())
	room.RecordResponse("c1", 1)

	restored := room.Snapshot().Restore()
	if restored.Status != domain.StatusWaiting || restored.ActiveIndex != 0 {
		t.Fatalf("mid-run room must restore to waiting, got %s/%d", restored.Status, restored.ActiveIndex)
	}
	if len(restored.Responses) != 0 {
		t.Fatalf("run progress must be discarded, got %+v", restored.Responses)
	}
	if len(restored.Participants) != 1 || len(restored.Questions) != 2 {
		t.Fatalf("roster and questions must survive, got %+v %+v", restored.Participants, restored.Questions)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	room := domain.NewRoom("R1", "pres", "Ms Chen")
	p, _ := room.AddParticipant("c1", "Alice")

	snap := room.Snapshot()
	p.Score = 7
	if snap.Participants[0].Score != 0 {
		t.Fatalf("snapshot must not alias live participants")
	}
}
