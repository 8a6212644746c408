package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskhub/internal/logger"
	"taskhub/internal/models"
)

// StateKey is the fixed key the task list is stored under.
const StateKey = "taskhub_tasks"

// CurrentVersion is the persisted layout written by Save.
const CurrentVersion = 1

var operationCount = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "taskhub_storage_operations_total",
		Help: "Total number of session storage operations",
	},
	[]string{"op", "result"},
)

// Backend is a session-scoped key-value store holding text blobs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// State is the persisted layout. Tasks is nil when the field was absent.
type State struct {
	Version int           `json:"version,omitempty"`
	Tasks   []models.Task `json:"tasks"`
}

var (
	ErrMalformed          = errors.New("malformed persisted state")
	ErrUnsupportedVersion = errors.New("unsupported persisted state version")
)

// Decode parses a persisted blob. Blobs without a version are legacy v1.
func Decode(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if st.Version == 0 {
		st.Version = 1
	}
	if st.Version > CurrentVersion {
		return State{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, st.Version)
	}
	return st, nil
}

func Encode(st State) ([]byte, error) {
	st.Version = CurrentVersion
	return json.Marshal(st)
}

// SessionStorage persists board state best-effort. Every failure is logged
// and swallowed; a nil backend disables all operations.
type SessionStorage struct {
	backend Backend
	key     string
}

// New returns storage over backend. A non-empty session scopes the key.
func New(backend Backend, session string) *SessionStorage {
	return &SessionStorage{backend: backend, key: KeyFor(session)}
}

// Disabled returns storage for contexts without any backend.
func Disabled() *SessionStorage {
	return &SessionStorage{key: StateKey}
}

// KeyFor returns the storage key of a session.
func KeyFor(session string) string {
	if session == "" {
		return StateKey
	}
	return session + "/" + StateKey
}

func (s *SessionStorage) Available() bool {
	return s != nil && s.backend != nil
}

func (s *SessionStorage) Key() string {
	return s.key
}

func (s *SessionStorage) Save(ctx context.Context, st State) {
	if !s.Available() {
		return
	}
	data, err := Encode(st)
	if err != nil {
		record("save", err)
		logger.Warn(ctx, "failed to encode session state", "key", s.key, "err", err)
		return
	}
	err = s.backend.Set(ctx, s.key, data)
	record("save", err)
	if err != nil {
		logger.Warn(ctx, "failed to save session state", "key", s.key, "err", err)
	}
}

// Load reports false when nothing usable is stored.
func (s *SessionStorage) Load(ctx context.Context) (State, bool) {
	if !s.Available() {
		return State{}, false
	}
	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		record("load", err)
		logger.Warn(ctx, "failed to load session state", "key", s.key, "err", err)
		return State{}, false
	}
	if !ok {
		record("load", nil)
		return State{}, false
	}
	st, err := Decode(data)
	record("load", err)
	if err != nil {
		logger.Warn(ctx, "ignoring stored session state", "key", s.key, "err", err)
		return State{}, false
	}
	return st, true
}

func (s *SessionStorage) Clear(ctx context.Context) {
	if !s.Available() {
		return
	}
	err := s.backend.Delete(ctx, s.key)
	record("clear", err)
	if err != nil {
		logger.Warn(ctx, "failed to clear session state", "key", s.key, "err", err)
	}
}

func record(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationCount.WithLabelValues(op, result).Inc()
}

// MemoryBackend keeps blobs for the lifetime of the process.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
