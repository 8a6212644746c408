package hydrate

import (
	"context"
	"sync"

	"taskhub/internal/logger"
	"taskhub/internal/models"
	"taskhub/internal/storage"
)

// Target receives the restored list.
type Target interface {
	ReplaceAll(tasks []models.Task)
}

// Hydrator restores a board from session storage on first mount.
type Hydrator struct {
	target  Target
	storage *storage.SessionStorage

	once     sync.Once
	hydrated bool
}

func New(target Target, st *storage.SessionStorage) *Hydrator {
	return &Hydrator{target: target, storage: st}
}

// Run loads persisted state at most once per Hydrator. It reports whether
// the target was replaced; later calls return the first call's result.
func (h *Hydrator) Run(ctx context.Context) bool {
	h.once.Do(func() {
		if !h.storage.Available() {
			logger.Debug(ctx, "no session storage, skipping hydration")
			return
		}
		st, ok := h.storage.Load(ctx)
		if !ok || st.Tasks == nil {
			return
		}
		h.target.ReplaceAll(st.Tasks)
		h.hydrated = true
		logger.Info(ctx, "board hydrated", "key", h.storage.Key(), "tasks", len(st.Tasks))
	})
	return h.hydrated
}
