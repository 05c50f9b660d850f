package enrich

import (
	"context"

	"bookenrich/internal/book"
)

// Adapter resolves a partial enrichment from one provider in one query
// mode. Implementations must not return errors or panic on provider
// failure; they return an empty Partial instead, marked Degraded when the
// provider was unreachable.
type Adapter interface {
	Provider() string
	Mode() Mode
	TryEnrich(ctx context.Context, rec book.InputRecord, missing Fields) Partial
}

// Cache stores finished enrichments by record identity.
type Cache interface {
	Get(ctx context.Context, key string) (book.Enrichment, bool)
	Put(ctx context.Context, key string, value book.Enrichment)
}
