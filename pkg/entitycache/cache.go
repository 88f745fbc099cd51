// Package entitycache provides a run-scoped, read-through get-or-create cache
// keyed by an entity's natural key.
//
// The cache is an optimization, never the system of record: the store's unique
// constraints remain the actual duplicate-prevention mechanism. Instances are
// meant to live for exactly one import run and must not be shared between
// runs.
package entitycache

import (
	"context"

	"github.com/go-faster/errors"
)

// Cache memoizes resolved entities by natural key. Resolving the same key
// twice returns the identical instance, so relationships attached later all
// land on one object instead of two divergent rows headed for a
// unique-constraint collision.
type Cache[T any] struct {
	entries map[string]T
	// notFound identifies the lookup error that means "absent, go create".
	notFound error
}

func New[T any](notFound error) *Cache[T] {
	return &Cache[T]{
		entries:  make(map[string]T),
		notFound: notFound,
	}
}

// Resolve returns the entity for key, looking it up in the cache, then the
// store, and finally constructing it via create. Whatever row exists first
// wins: differing non-key attributes on a later call never overwrite it.
func (c *Cache[T]) Resolve(
	ctx context.Context,
	key string,
	lookup func(ctx context.Context) (T, error),
	create func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok := c.entries[key]; ok {
		return v, nil
	}

	v, err := lookup(ctx)
	if err == nil {
		c.entries[key] = v
		return v, nil
	}
	if !errors.Is(err, c.notFound) {
		var zero T
		return zero, err
	}

	v, err = create(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.entries[key] = v
	return v, nil
}

// Reset drops every memoized entry. Call it after a rolled-back transaction:
// entries created inside it reference rows that no longer exist.
func (c *Cache[T]) Reset() {
	clear(c.entries)
}

// Len reports the number of memoized entries.
func (c *Cache[T]) Len() int {
	return len(c.entries)
}
