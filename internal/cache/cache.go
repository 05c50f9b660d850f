// Package cache persists finished enrichments by record identity with a
// retention window enforced on read.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookenrich/internal/book"
	"bookenrich/internal/platform/logger"

	"github.com/goccy/go-json"
)

// DefaultRetention is how long an entry stays valid after it was stored.
const DefaultRetention = 30 * 24 * time.Hour

// ErrNotFound is returned by a Store for an absent key.
var ErrNotFound = errors.New("cache: key not found")

// Store is a raw key/value backend. Expiry is decided by Layer, never by
// the backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry is the stored form of one enrichment.
type Entry struct {
	Key      string          `json:"key"`
	Value    book.Enrichment `json:"value"`
	StoredAt time.Time       `json:"storedAt"`
}

// Layer implements enrich.Cache over a Store.
type Layer struct {
	store     Store
	retention time.Duration
	now       func() time.Time
	log       *logger.Logger
}

type Option func(*Layer)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Layer) { l.now = now }
}

func WithLogger(log *logger.Logger) Option {
	return func(l *Layer) { l.log = log }
}

func NewLayer(store Store, retention time.Duration, opts ...Option) *Layer {
	if retention <= 0 {
		retention = DefaultRetention
	}
	l := &Layer{
		store:     store,
		retention: retention,
		now:       time.Now,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the enrichment for key. Missing, expired and undecodable
// entries are all misses.
func (l *Layer) Get(ctx context.Context, key string) (book.Enrichment, bool) {
	if key == "" {
		return book.Enrichment{}, false
	}
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.log.Warn("cache read failed", "key", key, "error", err)
		}
		return book.Enrichment{}, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || e.StoredAt.IsZero() {
		l.log.Warn("corrupt cache entry", "key", key)
		return book.Enrichment{}, false
	}
	if l.now().Sub(e.StoredAt) > l.retention {
		return book.Enrichment{}, false
	}
	return e.Value, true
}

// Put stores value under key, replacing any previous entry. Write failures
// are logged; a lost entry only costs a refetch.
func (l *Layer) Put(ctx context.Context, key string, value book.Enrichment) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(Entry{Key: key, Value: value, StoredAt: l.now().UTC()})
	if err != nil {
		l.log.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := l.store.Put(ctx, key, raw); err != nil {
		l.log.Warn("cache write failed", "key", key, "error", err)
	}
}

func (l *Layer) Close() error {
	return l.store.Close()
}

// Open builds the Store named by backend.
func Open(backend string, cfg BackendConfig) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "pebble":
		return NewPebbleStore(cfg.Path)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// BackendConfig carries the settings of every backend; each reads only its own.
type BackendConfig struct {
	Path        string
	RedisAddr   string
	RedisPrefix string
}
