package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
	"taskhub/internal/storage"
)

func TestReloadRestoresBoard(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	first := Open(ctx, storage.New(backend, "tab"))
	task := first.Tasks.AddTask("Buy milk", models.OptionalText("2 liters"))
	first.Tasks.ChangeStatus(task.ID, models.StatusCompleted)
	require.NoError(t, first.Close(ctx))

	second := Open(ctx, storage.New(backend, "tab"))
	defer second.Close(ctx)

	got, ok := second.Tasks.GetTask(task.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "2 liters", got.DescriptionText())
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))
}

func TestClearAllDropsStoredState(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	s := Open(ctx, storage.New(backend, "tab"))

	s.Tasks.AddTask("x", nil)
	require.NoError(t, s.Flush(ctx))
	s.ClearAll(ctx)
	require.NoError(t, s.Close(ctx))

	reopened := Open(ctx, storage.New(backend, "tab"))
	defer reopened.Close(ctx)
	assert.Zero(t, reopened.Tasks.Len())
}

func TestEndRemovesSession(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	s := Open(ctx, storage.New(backend, "tab"))
	s.Tasks.AddTask("x", nil)
	require.NoError(t, s.End(ctx))

	_, ok, err := backend.Get(ctx, storage.KeyFor("tab"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenWithoutStorage(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, storage.Disabled())
	s.Tasks.AddTask("in memory only", nil)
	assert.Equal(t, 1, s.Tasks.Len())
	require.NoError(t, s.Close(ctx))
}

func TestUnknownStatusDoesNotLoseBoard(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	first := Open(ctx, storage.New(backend, "tab"))
	a := first.Tasks.AddTask("a", nil)
	first.Tasks.AddTask("b", nil)
	assert.False(t, first.Tasks.ChangeStatus(a.ID, models.Status("archived")))
	require.NoError(t, first.Close(ctx))

	second := Open(ctx, storage.New(backend, "tab"))
	defer second.Close(ctx)
	assert.Equal(t, 2, second.Tasks.Len())
	got, ok := second.Tasks.GetTask(a.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusTodo, got.Status)
}
