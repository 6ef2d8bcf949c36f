// Package store persists the recorded session.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vburojevic/buildtl/internal/domain"
)

// ErrCorrupt is returned when stored data exists but cannot be decoded
var ErrCorrupt = errors.New("stored session is corrupt")

// Storage is a durable home for one session.
// Load returns nil, nil when nothing has been stored yet.
type Storage interface {
	Load() (*domain.Session, error)
	Save(s *domain.Session) error
}

func decode(b []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &s, nil
}

func encode(s *domain.Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("session is required")
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
