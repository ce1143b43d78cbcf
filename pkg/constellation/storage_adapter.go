package constellation

import (
	"fmt"

	"github.com/himanishpuri/constellation/pkg/constellation/storage"
)

var (
	_ Storage = (*storage.DBClient)(nil)
	_ Storage = (*storage.BadgerStore)(nil)
)

// NewSQLiteStorage opens the SQLite database file at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewBadgerStorage opens the badger directory at dir.
func NewBadgerStorage(dir string) (Storage, error) {
	kv, err := storage.NewBadgerStore(dir)
	if err != nil {
		return nil, err
	}
	return kv, nil
}

// OpenStorage opens the named backend at path.
func OpenStorage(backend, path string) (Storage, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStorage(path)
	case BackendBadger:
		return NewBadgerStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
