package store

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrStaleRevision   = errors.New("stale revision")
	ErrMalformedImport = errors.New("malformed import")
	ErrUnknownBackend  = errors.New("unknown store backend")
)

const (
	BackendGoLevelDB = "goleveldb"
	BackendSQLite    = "sqlite"
)

// KV is the key-value storage the proposal document lives in.
type KV interface {
	// Get returns ErrNotFound when the key is absent.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	// Update replaces the value under key with the result of fn, atomically
	// with respect to every other writer of the same backend. old is nil when
	// the key is absent. An error from fn aborts the write.
	Update(key []byte, fn func(old []byte) ([]byte, error)) error
	Close() error
}

// OpenKV opens the named backend at path, creating parent directories.
func OpenKV(backend, path string) (KV, error) {
	if backend != BackendGoLevelDB && backend != BackendSQLite && backend != "" {
		return nil, ErrUnknownBackend
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if backend == BackendSQLite {
		kv, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return kv, nil
	}
	kv, err := OpenLevelDB(path)
	if err != nil {
		return nil, err
	}
	return kv, nil
}
