package backend

import "sync"

// TokenStore is the process-wide session token with an explicit lifecycle:
// Set on login, Clear on logout or when the backend reports the session
// invalid. Injected into the client rather than read ad hoc.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *TokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
