// Package session bundles one board with its persistence.
//
// A Session is what a presentation layer holds: the CLI opens one per
// invocation, the HTTP server one per process, the Telegram bot one per chat.
package session

import (
	"context"

	"taskhub/internal/hydrate"
	"taskhub/internal/logger"
	"taskhub/internal/manager"
	"taskhub/internal/persist"
	"taskhub/internal/storage"
)

type Session struct {
	Tasks   *manager.TaskManager
	Storage *storage.SessionStorage

	persister   *persist.Persister
	hydrator    *hydrate.Hydrator
	unsubscribe func()
}

// Open creates the board, wires persistence and mounts it.
func Open(ctx context.Context, st *storage.SessionStorage, opts ...manager.Option) *Session {
	tm := manager.NewTaskManager(opts...)
	p := persist.New(tm, st)

	s := &Session{
		Tasks:       tm,
		Storage:     st,
		persister:   p,
		hydrator:    hydrate.New(tm, st),
		unsubscribe: tm.Subscribe(p.Observe),
	}
	s.Mount(ctx)
	return s
}

// Mount hydrates the board the first time it is called.
func (s *Session) Mount(ctx context.Context) bool {
	return s.hydrator.Run(ctx)
}

// ClearAll empties the board and drops what storage holds for it.
func (s *Session) ClearAll(ctx context.Context) {
	s.Tasks.ClearAll()
	s.Storage.Clear(ctx)
}

// Flush waits until every mutation so far has reached storage.
func (s *Session) Flush(ctx context.Context) error {
	return s.persister.Flush(ctx)
}

// End stops persistence and removes the session's stored state.
func (s *Session) End(ctx context.Context) error {
	s.unsubscribe()
	err := s.persister.Close(ctx)
	s.Storage.Clear(ctx)
	logger.Info(ctx, "session ended", "key", s.Storage.Key())
	return err
}

// Close writes pending changes and stops persistence.
func (s *Session) Close(ctx context.Context) error {
	s.unsubscribe()
	return s.persister.Close(ctx)
}
