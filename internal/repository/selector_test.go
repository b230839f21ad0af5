package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salakbook/internal/repository"
	"salakbook/internal/repository/memory"
)

// flakyBackend fails every operation while tripped.
type flakyBackend struct {
	inner   repository.Backend
	tripped bool
}

func (f *flakyBackend) Name() string { return "flaky" }

func (f *flakyBackend) Collection(name string) repository.Collection {
	return &flakyCollection{backend: f, inner: f.inner.Collection(name)}
}

type flakyCollection struct {
	backend *flakyBackend
	inner   repository.Collection
}

func (c *flakyCollection) Query(ctx context.Context, filter repository.Document) ([]repository.Stored, error) {
	if c.backend.tripped {
		return nil, errors.New("timeout")
	}
	return c.inner.Query(ctx, filter)
}

func (c *flakyCollection) Set(ctx context.Context, id string, doc repository.Document) error {
	if c.backend.tripped {
		return errors.New("timeout")
	}
	return c.inner.Set(ctx, id, doc)
}

func (c *flakyCollection) Add(ctx context.Context, doc repository.Document) (string, error) {
	if c.backend.tripped {
		return "", errors.New("timeout")
	}
	return c.inner.Add(ctx, doc)
}

func (c *flakyCollection) Delete(ctx context.Context, id string) error {
	if c.backend.tripped {
		return errors.New("timeout")
	}
	return c.inner.Delete(ctx, id)
}

func TestRun_PrefersDurable(t *testing.T) {
	durable := memory.New()
	fallback := memory.New()
	selector := repository.NewSelector(durable, fallback, nil)

	fellBack, err := selector.Run(context.Background(), "harvests", func(ctx context.Context, c repository.Collection) error {
		_, err := c.Add(ctx, repository.Document{"user": "udin"})
		return err
	})
	require.NoError(t, err)
	assert.False(t, fellBack)

	docs, err := durable.Collection("harvests").Query(context.Background(), repository.Document{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = fallback.Collection("harvests").Query(context.Background(), repository.Document{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRun_WithoutDurableUsesFallbackDirectly(t *testing.T) {
	fallback := memory.New()
	selector := repository.NewSelector(nil, fallback, nil)

	fellBack, err := selector.Run(context.Background(), "harvests", func(ctx context.Context, c repository.Collection) error {
		_, err := c.Add(ctx, repository.Document{"user": "udin"})
		return err
	})
	require.NoError(t, err)
	// Not a fallback: the ephemeral backend was the selected one.
	assert.False(t, fellBack)
	assert.Equal(t, "memory", selector.Active())
}

func TestRun_FailureAffectsOnlyThatCall(t *testing.T) {
	flaky := &flakyBackend{inner: memory.New()}
	fallback := memory.New()
	selector := repository.NewSelector(flaky, fallback, nil)

	addOne := func(ctx context.Context, c repository.Collection) error {
		_, err := c.Add(ctx, repository.Document{"user": "udin"})
		return err
	}

	flaky.tripped = true
	fellBack, err := selector.Run(context.Background(), "harvests", addOne)
	require.NoError(t, err)
	assert.True(t, fellBack)

	// The durable backend must be tried again on the next operation.
	flaky.tripped = false
	fellBack, err = selector.Run(context.Background(), "harvests", addOne)
	require.NoError(t, err)
	assert.False(t, fellBack)
}

func TestRun_SurfacesFallbackErrors(t *testing.T) {
	flaky := &flakyBackend{inner: memory.New(), tripped: true}
	selector := repository.NewSelector(nil, flaky, nil)

	_, err := selector.Run(context.Background(), "harvests", func(ctx context.Context, c repository.Collection) error {
		_, err := c.Add(ctx, repository.Document{"user": "udin"})
		return err
	})
	assert.Error(t, err)
}
