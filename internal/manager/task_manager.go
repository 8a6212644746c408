package manager

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskhub/internal/models"
)

var (
	mutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_mutations_total",
			Help: "Total number of task store mutations",
		},
		[]string{"action", "result"},
	)

	taskCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskhub_tasks",
			Help: "Number of tasks currently held by the store",
		},
	)

	taskTitleLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskhub_task_title_length_bytes",
			Help:    "Length distribution of task titles",
			Buckets: []float64{10, 50, 100, 500},
		},
	)
)

// Action names the mutation that produced an Event.
type Action string

const (
	ActionAdd          Action = "add"
	ActionUpdate       Action = "update"
	ActionChangeStatus Action = "change_status"
	ActionDelete       Action = "delete"
	ActionClearAll     Action = "clear_all"
	ActionImport       Action = "import"
	ActionHydrate      Action = "hydrate"
)

// Event is delivered to observers after every mutation, applied or not.
type Event struct {
	Action  Action
	TaskID  string
	Applied bool
}

type Observer func(Event)

type Option func(*TaskManager)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(tm *TaskManager) { tm.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(newID func() string) Option {
	return func(tm *TaskManager) { tm.newID = newID }
}

// TaskManager owns the task list. Its methods are the only way to change it.
type TaskManager struct {
	mu        sync.Mutex
	tasks     []models.Task
	observers []observerEntry
	nextObsID int

	now   func() time.Time
	newID func() string
}

type observerEntry struct {
	id int
	fn Observer
}

func NewTaskManager(opts ...Option) *TaskManager {
	tm := &TaskManager{
		tasks: []models.Task{},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Subscribe registers o and returns a function that removes it.
func (tm *TaskManager) Subscribe(o Observer) func() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.nextObsID++
	id := tm.nextObsID
	tm.observers = append(tm.observers, observerEntry{id: id, fn: o})

	return func() {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		for i, e := range tm.observers {
			if e.id == id {
				tm.observers = append(tm.observers[:i:i], tm.observers[i+1:]...)
				return
			}
		}
	}
}

// AddTask appends a new todo task. Title validation is up to the caller.
func (tm *TaskManager) AddTask(title string, description *string) models.Task {
	tm.mu.Lock()
	task := models.Task{
		ID:          tm.newID(),
		Title:       title,
		Description: description,
		Status:      models.StatusTodo,
		CreatedAt:   tm.now().UTC(),
	}
	task = task.Clone()
	tm.tasks = append(tm.tasks, task)
	taskTitleLength.Observe(float64(len(title)))
	tm.commit(Event{Action: ActionAdd, TaskID: task.ID, Applied: true})

	return task.Clone()
}

// ChangeStatus reports whether a task with id exists and status is valid.
// An unknown status leaves the list untouched.
func (tm *TaskManager) ChangeStatus(id string, status models.Status) bool {
	tm.mu.Lock()
	i := -1
	if status.Valid() {
		i = tm.indexOf(id)
	}
	if i >= 0 {
		tm.tasks[i].Status = status
	}
	tm.commit(Event{Action: ActionChangeStatus, TaskID: id, Applied: i >= 0})
	return i >= 0
}

// UpdateTask overwrites title and description of the matching task.
func (tm *TaskManager) UpdateTask(id, title string, description *string) bool {
	tm.mu.Lock()
	i := tm.indexOf(id)
	if i >= 0 {
		tm.tasks[i].Title = title
		tm.tasks[i].Description = models.CopyText(description)
	}
	tm.commit(Event{Action: ActionUpdate, TaskID: id, Applied: i >= 0})
	return i >= 0
}

func (tm *TaskManager) DeleteTask(id string) bool {
	tm.mu.Lock()
	kept := make([]models.Task, 0, len(tm.tasks))
	for _, t := range tm.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(kept) != len(tm.tasks)
	tm.tasks = kept
	tm.commit(Event{Action: ActionDelete, TaskID: id, Applied: removed})
	return removed
}

func (tm *TaskManager) ClearAll() {
	tm.mu.Lock()
	tm.tasks = []models.Task{}
	tm.commit(Event{Action: ActionClearAll, Applied: true})
}

// ReplaceAll swaps the whole list for tasks restored from storage.
// The input is trusted as is.
func (tm *TaskManager) ReplaceAll(tasks []models.Task) {
	tm.mu.Lock()
	tm.tasks = models.CloneTasks(tasks)
	if tm.tasks == nil {
		tm.tasks = []models.Task{}
	}
	tm.commit(Event{Action: ActionHydrate, Applied: true})
}

// ImportTasks appends tasks keeping their ids and timestamps.
// Tasks whose id is already present are skipped. It returns the number appended.
func (tm *TaskManager) ImportTasks(tasks []models.Task) int {
	tm.mu.Lock()
	seen := make(map[string]struct{}, len(tm.tasks)+len(tasks))
	for _, t := range tm.tasks {
		seen[t.ID] = struct{}{}
	}
	added := 0
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		tm.tasks = append(tm.tasks, t.Clone())
		added++
	}
	tm.commit(Event{Action: ActionImport, Applied: added > 0})
	return added
}

func (tm *TaskManager) GetAllTasks() []models.Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return models.CloneTasks(tm.tasks)
}

func (tm *TaskManager) GetTask(id string) (models.Task, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if i := tm.indexOf(id); i >= 0 {
		return tm.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

func (tm *TaskManager) Len() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.tasks)
}

func (tm *TaskManager) indexOf(id string) int {
	for i := range tm.tasks {
		if tm.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// commit must be called with tm.mu held. It releases the lock and then
// notifies the observers registered at that moment.
func (tm *TaskManager) commit(ev Event) {
	result := "noop"
	if ev.Applied {
		result = "applied"
	}
	mutationCount.WithLabelValues(string(ev.Action), result).Inc()
	taskCount.Set(float64(len(tm.tasks)))

	observers := make([]Observer, len(tm.observers))
	for i, e := range tm.observers {
		observers[i] = e.fn
	}
	tm.mu.Unlock()

	for _, o := range observers {
		o(ev)
	}
}
