package memory

import (
	"sync"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

// SessionStore is the in-memory implementation of app.SessionStore: room
// sessions keyed by room code plus the connection index used for O(1)
// disconnect handling. It holds no logic beyond storage and lookup; all
// mutation of room state goes through the engine.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.RoomSession
	conns    map[string]domain.ConnRef
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.RoomSession),
		conns:    make(map[string]domain.ConnRef),
	}
}

func (s *SessionStore) GetOrCreate(roomID string, create func() *domain.Room) (*app.RoomSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[roomID]; ok {
		return session, false
	}
	session := app.NewRoomSession(create())
	s.sessions[roomID] = session
	return session, true
}

func (s *SessionStore) Get(roomID string) (*app.RoomSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[roomID]
	return session, ok
}

func (s *SessionStore) Sessions() []*app.RoomSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*app.RoomSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		all = append(all, session)
	}
	return all
}

func (s *SessionStore) Bind(connID string, ref domain.ConnRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = ref
}

func (s *SessionStore) Lookup(connID string) (domain.ConnRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.conns[connID]
	return ref, ok
}

func (s *SessionStore) Unbind(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
}
