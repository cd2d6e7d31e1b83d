package app

import (
	"sync"
	"time"

	"quizroom-service/internal/domain"
)

// RoomSession wraps a room with its lock and its single pending timer.
// Every engine operation on a room runs under the session mutex, so one
// event at a time mutates a given room while distinct rooms stay fully
// independent.
//
// At most one timer is pending per room (a countdown tick, the active
// question's expiry, or the post-results pause), so one handle field is
// enough; arming always cancels whatever was stored first.
type RoomSession struct {
	mu    sync.Mutex
	room  *domain.Room
	timer *time.Timer
	epoch uint64
}

// NewRoomSession is exported for store implementations that need to wrap
// restored rooms.
func NewRoomSession(room *domain.Room) *RoomSession {
	return &RoomSession{room: room}
}

// Room exposes the aggregate for store implementations and tests. Callers
// outside an engine operation must not mutate it.
func (s *RoomSession) Room() *domain.Room {
	return s.room
}

// armLocked schedules fn after d, cancelling any pending timer first. The
// caller must hold mu. fn runs with mu held and only if no cancel or re-arm
// happened in between: the epoch captured at arm time is compared against
// the session's current epoch, so a stale fire is a no-op even when
// Timer.Stop lost the race with the runtime.
func (s *RoomSession) armLocked(d time.Duration, fn func()) {
	s.cancelTimerLocked()
	armed := s.epoch
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != armed {
			return
		}
		s.timer = nil
		fn()
	})
}

// cancelTimerLocked stops and clears the pending timer, if any. Bumping the
// epoch invalidates a callback that already fired but has not taken the
// lock yet. The caller must hold mu.
func (s *RoomSession) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.epoch++
}
