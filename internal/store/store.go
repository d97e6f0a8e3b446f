package store

import (
	"context"
	"errors"
	"fmt"
)

// DefaultKey is the storage key of the standalone drawing.
const DefaultKey = "drawing"

var (
	ErrNotFound      = errors.New("state not found")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrInvalidID     = errors.New("invalid drawing id")
)

// Store is durable key/value storage for serialized scenes.
type Store interface {
	// Load returns the bytes saved under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// KeyFor returns the storage key of a drawing. Drawings share the
// default key's prefix so the standalone page and the service can read
// each other's state.
func KeyFor(base, drawingID string) string {
	if base == "" {
		base = DefaultKey
	}
	if drawingID == "" {
		return base
	}
	return base + ":" + drawingID
}

// Options selects and configures a backend.
type Options struct {
	Driver      string // sqlite, postgres or memory
	SQLitePath  string
	DatabaseURL string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "":
		return OpenSQLite(ctx, opts.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
