package storage

import (
	"fmt"
	"strings"
)

// NewStore returns an uninitialised store of the given kind ("memory" or
// "sqlite"); dsn is only used by sqlite.
func NewStore(kind, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
