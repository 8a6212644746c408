package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"taskhub/internal/logger"
	"taskhub/internal/manager"
	"taskhub/internal/models"
	"taskhub/internal/session"
	"taskhub/internal/storage"
)

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot keeps one board per chat.
type Bot struct {
	api     Sender
	backend storage.Backend

	mu       sync.Mutex
	sessions map[int64]*session.Session
}

func NewBot(api Sender, backend storage.Backend) *Bot {
	return &Bot{
		api:      api,
		backend:  backend,
		sessions: make(map[int64]*session.Session),
	}
}

func sessionName(chatID int64) string {
	return "chat-" + strconv.FormatInt(chatID, 10)
}

// session returns the chat's board, restoring it on first use.
func (b *Bot) session(ctx context.Context, chatID int64) *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[chatID]; ok {
		return s
	}
	s := session.Open(ctx, storage.New(b.backend, sessionName(chatID)))
	b.sessions[chatID] = s
	return s
}

func (b *Bot) endSession(ctx context.Context, chatID int64) error {
	s := b.session(ctx, chatID)

	b.mu.Lock()
	delete(b.sessions, chatID)
	b.mu.Unlock()

	return s.End(ctx)
}

// Close flushes every open chat board.
func (b *Bot) Close(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for chatID, s := range b.sessions {
		if err := s.Close(ctx); err != nil {
			logger.Error(ctx, err, "failed to close chat session", "chat", chatID)
		}
		delete(b.sessions, chatID)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ctx := logger.With(context.Background(), "chat", msg.Chat.ID)

	user := ""
	if msg.From != nil {
		user = msg.From.UserName
	}
	logger.Debug(ctx, "message received", "user", user, "text", msg.Text)

	var reply string
	if msg.IsCommand() {
		reply = b.dispatch(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
	} else if text := strings.TrimSpace(msg.Text); text != "" {
		// plain text adds a task
		reply = b.dispatch(ctx, msg.Chat.ID, "add", text)
	}
	if reply != "" {
		b.sendMessage(ctx, msg.Chat.ID, reply)
	}
}

func (b *Bot) dispatch(ctx context.Context, chatID int64, command, args string) string {
	args = strings.TrimSpace(args)

	switch command {
	case "start", "help":
		return helpText
	case "end":
		if err := b.endSession(ctx, chatID); err != nil {
			logger.Error(ctx, err, "failed to end session")
		}
		return "👋 Session ended, the board was removed."
	}

	s := b.session(ctx, chatID)
	switch command {
	case "add":
		return b.addTask(s, args)
	case "list":
		return b.listTasks(s, "", args)
	case "find":
		if args == "" {
			return "Tell me what to look for: /find milk"
		}
		return b.listTasks(s, args, manager.StatusAll)
	case "board":
		return boardText(manager.Partition(manager.View(s.Tasks.GetAllTasks(), manager.DefaultViewOptions())))
	case "done":
		return b.moveTask(s, args, models.StatusCompleted)
	case "cancel":
		return b.moveTask(s, args, models.StatusCanceled)
	case "todo":
		return b.moveTask(s, args, models.StatusTodo)
	case "edit":
		return b.editTask(s, args)
	case "delete":
		return b.deleteTask(s, args)
	case "clear":
		n := s.Tasks.Len()
		s.ClearAll(ctx)
		return fmt.Sprintf("🧹 Removed %d tasks.", n)
	default:
		return "Unknown command. Use /help for the list of commands."
	}
}

// addTask takes "title | description".
func (b *Bot) addTask(s *session.Session, args string) string {
	title, desc := splitText(args)
	if title == "" {
		return "Put the task after the command: /add Buy milk | semi-skimmed"
	}
	task := s.Tasks.AddTask(title, models.OptionalText(desc))
	return fmt.Sprintf("✅ *Task added!*\n\n%s\nID: `%s`", escape(task.Title), task.ID)
}

func (b *Bot) listTasks(s *session.Session, query, status string) string {
	if status == "" {
		status = manager.StatusAll
	}
	opts, err := manager.ParseViewOptions(query, status, "", "")
	if err != nil {
		return "Status must be one of: todo, completed, canceled."
	}

	tasks := manager.View(s.Tasks.GetAllTasks(), opts)
	if len(tasks) == 0 {
		return "📭 No tasks"
	}

	var sb strings.Builder
	sb.WriteString("📋 *Your tasks:*\n\n")
	for i, t := range listing(s) {
		if !containsID(tasks, t.ID) {
			continue
		}
		fmt.Fprintf(&sb, "%s %d. %s\n", statusEmoji(t.Status), i+1, escape(t.Title))
		if t.Description != nil {
			fmt.Fprintf(&sb, "    _%s_\n", escape(*t.Description))
		}
	}
	return sb.String()
}

func (b *Bot) moveTask(s *session.Session, args string, status models.Status) string {
	task, ok := resolve(s, args)
	if !ok {
		return "Task not found. Use the number from /list: /done 1"
	}
	s.Tasks.ChangeStatus(task.ID, status)
	return fmt.Sprintf("%s %s moved to %s", statusEmoji(status), escape(task.Title), status)
}

// editTask takes "N title | description".
func (b *Bot) editTask(s *session.Session, args string) string {
	ref, rest, _ := strings.Cut(args, " ")
	task, ok := resolve(s, ref)
	if !ok {
		return "Task not found. Use: /edit 1 New title | new description"
	}
	title, desc := splitText(rest)
	if title == "" {
		return "A task needs a title: /edit 1 New title"
	}
	s.Tasks.UpdateTask(task.ID, title, models.OptionalText(desc))
	return fmt.Sprintf("✏️ Task updated: %s", escape(title))
}

func (b *Bot) deleteTask(s *session.Session, args string) string {
	task, ok := resolve(s, args)
	if !ok {
		return "Task not found. Use the number from /list: /delete 1"
	}
	s.Tasks.DeleteTask(task.ID)
	return fmt.Sprintf("🗑️ %s deleted", escape(task.Title))
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := b.api.Send(msg); err != nil {
		logger.Error(ctx, err, "failed to send message")
	}
}

// listing is the order /list numbers tasks in.
func listing(s *session.Session) []models.Task {
	return manager.View(s.Tasks.GetAllTasks(), manager.DefaultViewOptions())
}

// resolve accepts a /list number, a task id or a unique id prefix.
func resolve(s *session.Session, ref string) (models.Task, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Task{}, false
	}
	tasks := listing(s)

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(tasks) {
			return models.Task{}, false
		}
		return tasks[n-1], true
	}

	var found []models.Task
	for _, t := range tasks {
		if t.ID == ref {
			return t, true
		}
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	if len(found) != 1 {
		return models.Task{}, false
	}
	return found[0], true
}

func splitText(s string) (title, desc string) {
	title, desc, _ = strings.Cut(s, "|")
	return strings.TrimSpace(title), strings.TrimSpace(desc)
}

func containsID(tasks []models.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

func statusEmoji(s models.Status) string {
	switch s {
	case models.StatusCompleted:
		return "✅"
	case models.StatusCanceled:
		return "❌"
	default:
		return "🟢"
	}
}

func boardText(board manager.Board) string {
	var sb strings.Builder
	for _, st := range models.Statuses {
		col := board.Column(st)
		fmt.Fprintf(&sb, "%s *%s* (%d)\n", statusEmoji(st), strings.ToUpper(string(st)), len(col))
		for _, t := range col {
			fmt.Fprintf(&sb, "  • %s\n", escape(t.Title))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

const helpText = `🤖 *Commands*

/add title | description - Add a task
/list \[todo|completed|canceled] - Show tasks, newest first
/board - Show tasks by column
/find text - Search titles and descriptions
/done N - Mark task completed
/cancel N - Mark task canceled
/todo N - Move task back to todo
/edit N title | description - Edit a task
/delete N - Delete a task
/clear - Delete every task
/end - End the session and forget the board
/help - Show this help

N is the number from /list. Any other text is added as a task.`
