package main

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
	"taskhub/internal/storage"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func newTestBot(t *testing.T) (*Bot, *fakeSender, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	sender := &fakeSender{}
	bot := NewBot(sender, backend)
	t.Cleanup(func() { bot.Close(context.Background()) })
	return bot, sender, backend
}

func TestAddAndList(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newTestBot(t)

	reply := bot.dispatch(ctx, 1, "add", "Buy milk | semi-skimmed")
	assert.Contains(t, reply, "Task added")

	reply = bot.dispatch(ctx, 1, "list", "")
	assert.Contains(t, reply, "1. Buy milk")
	assert.Contains(t, reply, "semi-skimmed")

	reply = bot.dispatch(ctx, 1, "add", "   ")
	assert.Contains(t, reply, "/add")
	assert.Equal(t, 1, bot.session(ctx, 1).Tasks.Len())
}

func TestChatsHaveSeparateBoards(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newTestBot(t)

	bot.dispatch(ctx, 1, "add", "mine")
	assert.Equal(t, "📭 No tasks", bot.dispatch(ctx, 2, "list", ""))
}

func TestStatusCommands(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newTestBot(t)
	bot.dispatch(ctx, 1, "add", "report")

	assert.Contains(t, bot.dispatch(ctx, 1, "done", "1"), "completed")
	task := bot.session(ctx, 1).Tasks.GetAllTasks()[0]
	assert.Equal(t, models.StatusCompleted, task.Status)

	assert.Contains(t, bot.dispatch(ctx, 1, "cancel", task.ID), "canceled")
	assert.Contains(t, bot.dispatch(ctx, 1, "todo", task.ID), "todo")
	assert.Contains(t, bot.dispatch(ctx, 1, "done", "7"), "not found")

	assert.Contains(t, bot.dispatch(ctx, 1, "list", "todo"), "report")
	assert.Equal(t, "📭 No tasks", bot.dispatch(ctx, 1, "list", "completed"))
	assert.Contains(t, bot.dispatch(ctx, 1, "list", "paused"), "Status must be")
}

func TestEditDeleteAndFind(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newTestBot(t)
	bot.dispatch(ctx, 1, "add", "draft")

	assert.Contains(t, bot.dispatch(ctx, 1, "edit", "1 final | reviewed by Ann"), "final")
	task := bot.session(ctx, 1).Tasks.GetAllTasks()[0]
	assert.Equal(t, "final", task.Title)
	assert.Equal(t, "reviewed by Ann", task.DescriptionText())

	assert.Contains(t, bot.dispatch(ctx, 1, "find", "ANN"), "final")
	assert.Equal(t, "📭 No tasks", bot.dispatch(ctx, 1, "find", "bob"))

	assert.Contains(t, bot.dispatch(ctx, 1, "delete", "1"), "deleted")
	assert.Zero(t, bot.session(ctx, 1).Tasks.Len())
}

func TestBoardGroupsByStatus(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newTestBot(t)
	bot.dispatch(ctx, 1, "add", "a")
	bot.dispatch(ctx, 1, "add", "b")
	bot.dispatch(ctx, 1, "done", "1")

	reply := bot.dispatch(ctx, 1, "board", "")
	assert.Contains(t, reply, "*TODO* (1)")
	assert.Contains(t, reply, "*COMPLETED* (1)")
	assert.Contains(t, reply, "*CANCELED* (0)")
}

func TestBoardSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	first := NewBot(&fakeSender{}, backend)
	first.dispatch(ctx, 5, "add", "remember me")
	first.Close(ctx)

	second := NewBot(&fakeSender{}, backend)
	defer second.Close(ctx)
	assert.Contains(t, second.dispatch(ctx, 5, "list", ""), "remember me")
}

func TestEndForgetsBoard(t *testing.T) {
	ctx := context.Background()
	bot, _, backend := newTestBot(t)
	bot.dispatch(ctx, 3, "add", "temp")
	require.NoError(t, bot.session(ctx, 3).Flush(ctx))

	assert.Contains(t, bot.dispatch(ctx, 3, "end", ""), "ended")
	_, ok, err := backend.Get(ctx, storage.KeyFor(sessionName(3)))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "📭 No tasks", bot.dispatch(ctx, 3, "list", ""))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newTestBot(t)
	bot.dispatch(ctx, 1, "add", "a")
	bot.dispatch(ctx, 1, "add", "b")

	assert.Equal(t, "🧹 Removed 2 tasks.", bot.dispatch(ctx, 1, "clear", ""))
	assert.Zero(t, bot.session(ctx, 1).Tasks.Len())
}

func TestHandleMessageSendsReply(t *testing.T) {
	bot, sender, _ := newTestBot(t)

	bot.handleMessage(&tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 9},
		Text: "water the plants",
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(9), sender.sent[0].ChatID)
	assert.Equal(t, "Markdown", sender.sent[0].ParseMode)
	assert.True(t, strings.Contains(sender.sent[0].Text, "water the plants"))
}

func TestUnknownCommand(t *testing.T) {
	bot, _, _ := newTestBot(t)
	assert.Contains(t, bot.dispatch(context.Background(), 1, "fly", ""), "Unknown command")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `snake\_case \*bold\*`, escape("snake_case *bold*"))
}

func TestRunFailsWithoutToken(t *testing.T) {
	t.Setenv("TASKHUB_TELEGRAM_TOKEN", "")
	t.Setenv("TASKHUB_STORAGE", "memory")

	assert.Error(t, run(context.Background()))
}
