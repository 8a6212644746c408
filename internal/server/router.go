package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskhub/internal/logger"
	"taskhub/internal/manager"
	"taskhub/internal/models"
	"taskhub/internal/session"
)

var (
	ErrEmptyTitle    = errors.New("title is required")
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("task not found")
)

// NewRouter exposes one session's board as JSON.
func NewRouter(s *session.Session) *chi.Mux {
	h := &handler{session: s}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.listTasks)
		r.Post("/", h.addTask)
		r.Delete("/", h.clearAll)
		r.Get("/board", h.board)
		r.Get("/{id}", h.getTask)
		r.Put("/{id}", h.updateTask)
		r.Delete("/{id}", h.deleteTask)
		r.Patch("/{id}/status", h.changeStatus)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type handler struct {
	session *session.Session
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) view(r *http.Request) ([]models.Task, error) {
	q := r.URL.Query()
	opts, err := manager.ParseViewOptions(q.Get("q"), q.Get("status"), q.Get("sort"), q.Get("order"))
	if err != nil {
		return nil, err
	}
	return manager.View(h.session.Tasks.GetAllTasks(), opts), nil
}

// GET /tasks
func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.view(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GET /tasks/board
func (h *handler) board(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.view(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, manager.Partition(tasks))
}

// POST /tasks
func (h *handler) addTask(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.Body.Close()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, ErrEmptyTitle.Error())
		return
	}

	task := h.session.Tasks.AddTask(title, models.OptionalText(req.Description))
	logger.Debug(r.Context(), "task added", "id", task.ID)
	writeJSON(w, http.StatusCreated, task)
}

// GET /tasks/{id}
func (h *handler) getTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.session.Tasks.GetTask(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// PUT /tasks/{id}
func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.Body.Close()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, ErrEmptyTitle.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if !h.session.Tasks.UpdateTask(id, title, models.OptionalText(req.Description)) {
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	h.respondTask(w, id)
}

// PATCH /tasks/{id}/status
func (h *handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req models.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.Body.Close()

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidStatus.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if !h.session.Tasks.ChangeStatus(id, status) {
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	h.respondTask(w, id)
}

// DELETE /tasks/{id}
func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if !h.session.Tasks.DeleteTask(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /tasks
func (h *handler) clearAll(w http.ResponseWriter, r *http.Request) {
	h.session.ClearAll(context.WithoutCancel(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) respondTask(w http.ResponseWriter, id string) {
	task, ok := h.session.Tasks.GetTask(id)
	if !ok {
		// deleted concurrently
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
