package store

import (
	"sync"

	"github.com/vburojevic/buildtl/internal/domain"
)

// MemoryStorage keeps the encoded session in memory, mostly for tests
type MemoryStorage struct {
	mu    sync.Mutex
	raw   []byte
	saves int
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load implements Storage
func (m *MemoryStorage) Load() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raw == nil {
		return nil, nil
	}
	return decode(m.raw)
}

// Save implements Storage
func (m *MemoryStorage) Save(s *domain.Session) error {
	b, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = b
	m.saves++
	return nil
}

// SetRaw replaces the stored bytes
func (m *MemoryStorage) SetRaw(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = b
}

// Saves returns how many times Save succeeded
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
