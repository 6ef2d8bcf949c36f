package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/vburojevic/buildtl/internal/domain"
)

// FileStorage keeps the session as a JSON document on disk
type FileStorage struct {
	path string
}

// NewFileStorage creates a file-backed storage at path
func NewFileStorage(path string) (*FileStorage, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("storage path is required")
	}
	return &FileStorage{path: path}, nil
}

// Path returns the backing file
func (f *FileStorage) Path() string {
	return f.path
}

// Load implements Storage
func (f *FileStorage) Load() (*domain.Session, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return decode(b)
}

// Save implements Storage. The file is replaced atomically so readers in
// other processes never see a partial document.
func (f *FileStorage) Save(s *domain.Session) error {
	b, err := encode(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// DefaultPath returns the session file for a project directory
func DefaultPath(projectDir, backend string) (string, error) {
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		projectDir = wd
	}
	name := "session.json"
	if backend == BackendSQLite {
		name = "session.db"
	}
	return filepath.Join(projectDir, ".buildtl", name), nil
}
