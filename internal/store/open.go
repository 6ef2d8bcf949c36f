package store

import (
	"fmt"
	"io"
)

// Backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the storage for backend at path and a closer for it
func Open(backend, path string) (Storage, io.Closer, error) {
	switch backend {
	case "", BackendFile:
		fs, err := NewFileStorage(path)
		if err != nil {
			return nil, nil, err
		}
		return fs, nopCloser{}, nil
	case BackendSQLite:
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q (use file or sqlite)", backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
