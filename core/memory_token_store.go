package core

import (
	"context"
	"sync"
)

// MemoryTokenStore keeps the credential pair in process memory. It is the
// default store; durable alternatives live under store/.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	cred  Credential
	empty bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{empty: true}
}

func (s *MemoryTokenStore) Get(_ context.Context) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.empty {
		return Credential{}, ErrNoCredential
	}
	return s.cred, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.empty = false
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	s.empty = true
	return nil
}

var _ TokenStore = (*MemoryTokenStore)(nil)
