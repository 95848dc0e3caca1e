// Package memory is a volatile session store for local development; the
// transcript is gone when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/tutorlink/live/internal/domain"
)

type SessionStore struct {
	mu           sync.RWMutex
	chat         map[domain.RoomID][]domain.ChatMessage
	participants map[domain.RoomID][]domain.User
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		chat:         make(map[domain.RoomID][]domain.ChatMessage),
		participants: make(map[domain.RoomID][]domain.User),
	}
}

func (s *SessionStore) AppendChatMessage(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat[msg.RoomID] = append(s.chat[msg.RoomID], msg)
	s.remember(msg.RoomID, domain.User{ID: msg.FromUserID, DisplayName: msg.DisplayName})
	return nil
}

func (s *SessionStore) DurableParticipants(_ context.Context, room domain.RoomID) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.participants[room]))
	copy(out, s.participants[room])
	return out, nil
}

func (s *SessionStore) remember(room domain.RoomID, u domain.User) {
	for _, p := range s.participants[room] {
		if p.ID == u.ID {
			return
		}
	}
	s.participants[room] = append(s.participants[room], u)
}

func (s *SessionStore) Transcript(room domain.RoomID) []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatMessage, len(s.chat[room]))
	copy(out, s.chat[room])
	return out
}
