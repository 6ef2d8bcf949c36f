package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockSuffix names the sidecar file locked next to a storage path
const LockSuffix = ".lock"

// FileLock is an exclusive advisory lock on a sidecar file. It serializes
// load-modify-save cycles of separate processes sharing one storage.
type FileLock struct {
	f *os.File
}

// Lock blocks until the lock for the storage at path is held
func Lock(path string) (*FileLock, error) {
	lockPath := path + LockSuffix
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	return &FileLock{f: f}, nil
}

// Unlock releases the lock. The sidecar file is left in place.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
