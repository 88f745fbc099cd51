package entitycache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

type row struct {
	id   int64
	name string
}

func TestResolve_CacheHitReturnsIdenticalInstance(t *testing.T) {
	c := New[*row](errMissing)
	ctx := context.Background()

	lookups := 0
	creates := 0
	lookup := func(ctx context.Context) (*row, error) {
		lookups++
		return nil, errMissing
	}
	create := func(ctx context.Context) (*row, error) {
		creates++
		return &row{id: int64(creates), name: "first"}, nil
	}

	first, err := c.Resolve(ctx, "14", lookup, create)
	require.NoError(t, err)

	// second resolve with a different factory must not create a second row
	second, err := c.Resolve(ctx, "14", lookup, func(ctx context.Context) (*row, error) {
		creates++
		return &row{id: 99, name: "second"}, nil
	})
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, lookups)
	require.Equal(t, 1, creates)
}

func TestResolve_StoreHitSkipsCreate(t *testing.T) {
	c := New[*row](errMissing)
	ctx := context.Background()

	stored := &row{id: 7, name: "stored"}
	got, err := c.Resolve(ctx, "1465",
		func(ctx context.Context) (*row, error) { return stored, nil },
		func(ctx context.Context) (*row, error) {
			t.Fatal("create must not be called when the store has the row")
			return nil, nil
		},
	)
	require.NoError(t, err)
	require.Same(t, stored, got)
}

func TestResolve_FirstWriteWins(t *testing.T) {
	c := New[*row](errMissing)
	ctx := context.Background()

	stored := &row{id: 7, name: "Mazowieckie"}
	lookup := func(ctx context.Context) (*row, error) { return stored, nil }

	first, err := c.Resolve(ctx, "14", lookup, nil)
	require.NoError(t, err)

	// same natural key, cosmetically different name: existing row wins
	again, err := c.Resolve(ctx, "14",
		func(ctx context.Context) (*row, error) { return &row{id: 8, name: "mazowieckie "}, nil },
		nil,
	)
	require.NoError(t, err)
	require.Same(t, first, again)
	require.Equal(t, "Mazowieckie", again.name)
}

func TestResolve_LookupErrorPropagates(t *testing.T) {
	c := New[*row](errMissing)
	ctx := context.Background()

	boom := errors.New("connection refused")
	_, err := c.Resolve(ctx, "14",
		func(ctx context.Context) (*row, error) { return nil, boom },
		func(ctx context.Context) (*row, error) {
			t.Fatal("create must not run after a non-not-found lookup error")
			return nil, nil
		},
	)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, c.Len())
}

func TestReset(t *testing.T) {
	c := New[*row](errMissing)
	ctx := context.Background()

	_, err := c.Resolve(ctx, "14",
		func(ctx context.Context) (*row, error) { return &row{id: 1}, nil },
		nil,
	)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Reset()
	require.Equal(t, 0, c.Len())
}
