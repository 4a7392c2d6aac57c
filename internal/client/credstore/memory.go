package credstore

import (
	"context"
	"sync"

	"donorlink/internal/client/clienterr"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]string
	failWrites error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// FailWith makes every subsequent write fail with err. Pass nil to recover.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

// Save stores the token and user together.
func (m *MemoryStore) Save(_ context.Context, c Credentials) error {
	const op = "credstore.Save"
	if !c.Valid() {
		return clienterr.Wrap(op, clienterr.KindValidation, "Incomplete session.", ErrInvalidCredentials)
	}
	rawUser, err := encodeUser(c.User)
	if err != nil {
		return clienterr.Persistence(op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return clienterr.Persistence(op, m.failWrites)
	}
	m.entries[KeyToken] = c.Token
	m.entries[KeyUser] = rawUser
	return nil
}

// Load returns the pair, dropping a half-written one.
func (m *MemoryStore) Load(_ context.Context) (Credentials, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, hasToken := m.entries[KeyToken]
	rawUser, hasUser := m.entries[KeyUser]
	if !hasToken && !hasUser {
		return Credentials{}, false, nil
	}
	c, ok := decodePair(token, rawUser)
	if !ok {
		delete(m.entries, KeyToken)
		delete(m.entries, KeyUser)
	}
	return c, ok, nil
}

// Clear removes the token and user. Other keys are kept.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return clienterr.Persistence("credstore.Clear", m.failWrites)
	}
	delete(m.entries, KeyToken)
	delete(m.entries, KeyUser)
	return nil
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return clienterr.Persistence("credstore.Set", m.failWrites)
	}
	m.entries[key] = value
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return clienterr.Persistence("credstore.Delete", m.failWrites)
	}
	delete(m.entries, key)
	return nil
}

// Take returns the value under key and removes it.
func (m *MemoryStore) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if m.failWrites != nil {
		return "", false, clienterr.Persistence("credstore.Take", m.failWrites)
	}
	delete(m.entries, key)
	return v, true, nil
}
