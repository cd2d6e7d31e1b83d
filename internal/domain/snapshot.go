package domain

import "time"

// RoomSnapshot is the durable form of a Room. Responses are exported as
// per-participant ordered lists so the snapshot round-trips without
// depending on map iteration order anywhere that matters.
type RoomSnapshot struct {
	ID             string                `json:"id"`
	PresenterName  string                `json:"presenterName"`
	Participants   []*Participant        `json:"participants"`
	Status         RoomStatus            `json:"status"`
	Questions      []Question            `json:"questions"`
	ActiveIndex    int                   `json:"activeQuestionIndex"`
	Responses      map[string][]Response `json:"responses"`
	FinalRanking   []RankingEntry        `json:"finalRanking,omitempty"`
	FinalRankingAt time.Time             `json:"finalRankingAt,omitempty"`
}

// Snapshot exports the room's durable state. The presenter connection id,
// the denormalized active question, and timer state are deliberately
// transient and not captured.
func (r *Room) Snapshot() RoomSnapshot {
	parts := make([]*Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		cp := *p
		parts = append(parts, &cp)
	}
	resps := make(map[string][]Response, len(r.Responses))
	for id, rs := range r.Responses {
		resps[id] = append([]Response(nil), rs...)
	}
	return RoomSnapshot{
		ID:             r.ID,
		PresenterName:  r.PresenterName,
		Participants:   parts,
		Status:         r.Status,
		Questions:      append([]Question(nil), r.Questions...),
		ActiveIndex:    r.ActiveIndex,
		Responses:      resps,
		FinalRanking:   append([]RankingEntry(nil), r.FinalRanking...),
		FinalRankingAt: r.FinalRankingAt,
	}
}

// Restore rebuilds a live room from a snapshot. Timers are not persisted,
// so a room saved mid-run (countdown, question, results) cannot be resumed
// and comes back in the waiting state with the run progress discarded; the
// roster and question set survive. A finished room keeps its ranking and
// completion timestamp. The presenter connection is left detached until the
// presenter reattaches.
func (s RoomSnapshot) Restore() *Room {
	room := &Room{
		ID:            s.ID,
		PresenterName: s.PresenterName,
		Participants:  s.Participants,
		Status:        s.Status,
		Questions:     s.Questions,
		ActiveIndex:   s.ActiveIndex,
		Responses:     s.Responses,
	}
	if room.Participants == nil {
		room.Participants = make([]*Participant, 0)
	}
	if room.Questions == nil {
		room.Questions = make([]Question, 0)
	}
	if room.Responses == nil {
		room.Responses = make(map[string][]Response)
	}
	switch s.Status {
	case StatusFinished:
		room.FinalRanking = s.FinalRanking
		room.FinalRankingAt = s.FinalRankingAt
	case StatusWaiting:
		// as saved
	default:
		room.Status = StatusWaiting
		room.ActiveIndex = 0
		room.ActiveQuestion = nil
		room.Responses = make(map[string][]Response)
	}
	return room
}
