package credentials

import (
	"sync"

	"cardgame/go-client/pkg/models"
)

type MemoryStore struct {
	mu      sync.RWMutex
	session models.Session
	present bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (models.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.present, nil
}

func (s *MemoryStore) Set(session models.Session) error {
	if err := validateForSet(session); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.present = true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = models.Session{}
	s.present = false
	return nil
}
