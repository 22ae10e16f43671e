// file: internal/memory/store.go

// Package memory holds the key/value entries the server exposes as memory:// resources.
package memory

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/google/uuid"
)

// Entry is one stored memory.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Key       string    `json:"key" yaml:"key"`
	Category  string    `json:"category" yaml:"category"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Category string
	Limit    int
}

// Store is the resource store consumed by the server.
type Store interface {
	// List returns entries in insertion order.
	List(ctx context.Context, f Filter) ([]Entry, error)
	// Get returns the entry stored under key, or nil and no error if there is none.
	Get(ctx context.Context, key string) (*Entry, error)
	// Put inserts or replaces the entry with e.Key. ID and CreatedAt are assigned when
	// empty and preserved on replace.
	Put(ctx context.Context, e Entry) (*Entry, error)
}

// ErrEmptyKey is returned by Put for entries without a key.
var ErrEmptyKey = errors.New("memory entry key must not be empty")

// Open creates the store selected by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "sqlite":
		path, err := config.ExpandHome(cfg.Path)
		if err != nil {
			return nil, err
		}
		return OpenSQLite(path)
	default:
		return nil, errors.Newf("unknown store driver %q", cfg.Driver)
	}
}

func prepare(e Entry, now time.Time) (Entry, error) {
	if e.Key == "" {
		return e, ErrEmptyKey
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
