package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

func TestOrderPointerService_Increment(t *testing.T) {
	repo := newFakePointerRepo()
	service := NewOrderPointerService(repo)
	scope := syncScope()

	value, err := service.Increment(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	value, err = service.Increment(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 2, value)
}

func TestOrderPointerService_Decrement(t *testing.T) {
	scope := syncScope()

	t.Run("decrements above the floor", func(t *testing.T) {
		repo := newFakePointerRepo()
		repo.values[scope.Key()] = 3
		service := NewOrderPointerService(repo)

		value, err := service.Decrement(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, 2, value)
	})

	t.Run("floors at one", func(t *testing.T) {
		repo := newFakePointerRepo()
		repo.values[scope.Key()] = 1
		service := NewOrderPointerService(repo)

		value, err := service.Decrement(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, 1, value)
		assert.Empty(t, repo.sets, "a floored decrement never writes")
	})

	t.Run("a never-started pointer stays at zero", func(t *testing.T) {
		repo := newFakePointerRepo()
		service := NewOrderPointerService(repo)

		value, err := service.Decrement(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, 0, value)
		assert.Empty(t, repo.sets)
	})
}

func TestOrderPointerService_Reset(t *testing.T) {
	repo := newFakePointerRepo()
	repo.values[syncScope().Key()] = 7
	service := NewOrderPointerService(repo)

	value, err := service.Reset(context.Background(), syncScope())
	require.NoError(t, err)
	assert.Equal(t, 1, value)
}

func TestOrderPointerService_AutoAdvance(t *testing.T) {
	scope := syncScope()
	waiting := func(id string, position int) *entities.QueueEntry {
		return &entities.QueueEntry{ID: id, Position: position, Status: entities.VisitStatusWaiting}
	}

	t.Run("advances to the nearest waiting position ahead", func(t *testing.T) {
		repo := newFakePointerRepo()
		repo.values[scope.Key()] = 2
		service := NewOrderPointerService(repo)

		entries := []*entities.QueueEntry{
			waiting("a", 1),
			{ID: "b", Position: 3, Status: entities.VisitStatusFinished},
			waiting("c", 5),
			waiting("d", 4),
		}

		value, wrote, err := service.AutoAdvance(context.Background(), scope, entries, "b")
		require.NoError(t, err)
		assert.True(t, wrote)
		assert.Equal(t, 4, value)
	})

	t.Run("skips the entry that just transitioned", func(t *testing.T) {
		repo := newFakePointerRepo()
		repo.values[scope.Key()] = 2
		service := NewOrderPointerService(repo)

		entries := []*entities.QueueEntry{waiting("x", 3)}

		value, wrote, err := service.AutoAdvance(context.Background(), scope, entries, "x")
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.Equal(t, 2, value)
	})

	t.Run("positions at or behind the pointer never move it backward", func(t *testing.T) {
		repo := newFakePointerRepo()
		repo.values[scope.Key()] = 4
		service := NewOrderPointerService(repo)

		entries := []*entities.QueueEntry{waiting("a", 2), waiting("b", 4)}

		value, wrote, err := service.AutoAdvance(context.Background(), scope, entries, "z")
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.Equal(t, 4, value)
	})

	t.Run("empty queue leaves the pointer untouched", func(t *testing.T) {
		repo := newFakePointerRepo()
		repo.values[scope.Key()] = 3
		service := NewOrderPointerService(repo)

		value, wrote, err := service.AutoAdvance(context.Background(), scope, nil, "z")
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.Equal(t, 3, value)
	})
}
