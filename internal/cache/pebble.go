package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore persists entries on disk so a later run starts warm.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	if dir == "" {
		return nil, errors.New("pebble cache needs a path")
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (p *PebbleStore) Put(_ context.Context, key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.NoSync)
}

func (p *PebbleStore) Delete(_ context.Context, key string) error {
	return p.db.Delete([]byte(key), pebble.NoSync)
}

// Close flushes the WAL before closing.
func (p *PebbleStore) Close() error {
	if err := p.db.Flush(); err != nil {
		_ = p.db.Close()
		return err
	}
	return p.db.Close()
}
