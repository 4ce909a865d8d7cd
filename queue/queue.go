// Package queue implements the stateful task queue: CRUD, filtered
// queries, worker dispatch, and the dependency-satisfaction cascade.
package queue

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/dispatch/graph"
	"github.com/GoCodeAlone/dispatch/task"
)

// Queue owns a task collection held in an injected store. All mutation
// goes through the queue, serialized by an internal lock, so each
// read-modify-write is atomic against the store. The queue is reactive:
// it never polls or runs background loops.
type Queue struct {
	mu    sync.Mutex
	store task.Store
	log   *slog.Logger
	now   func() time.Time
	watch *watchRegistry
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates a Queue backed by store. A nil store gets an in-memory
// one.
func New(store task.Store, opts ...Option) *Queue {
	q := &Queue{
		store: store,
		now:   time.Now,
		watch: newWatchRegistry(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.store == nil {
		q.store = task.NewMemoryStore()
	}
	if q.log == nil {
		q.log = slog.Default()
	}
	return q
}

// Add creates the task in the queue. The queue assigns the ID (if
// empty), resolves the initial status, defaults the allowed-worker set
// from the function type, and records a created event. The caller's
// struct is not retained; the returned snapshot is the queue's view.
func (q *Queue) Add(t *task.Task) (*task.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	t = t.Clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if len(t.AllowedWorkers) == 0 {
		t.AllowedWorkers = task.DefaultAllowedWorkers(t.Function.Type)
	}
	if t.Assignment != nil && t.Assignment.AssignedAt.IsZero() {
		t.Assignment.AssignedAt = now
	}
	t.Status = t.InitialStatus(now)
	t.Events = append(t.Events, task.Event{Type: task.EventCreated, Timestamp: now})

	if err := q.store.Put(t); err != nil {
		return nil, fmt.Errorf("add task %s: %w", t.ID, err)
	}
	q.log.Debug("task added", "task", t.ID, "status", t.Status, "priority", t.Priority)
	q.publish(t)
	return t.Clone(), nil
}

// Get retrieves a task snapshot by ID.
func (q *Queue) Get(id string) (*task.Task, bool) {
	t, err := q.store.Get(id)
	if err != nil {
		return nil, false
	}
	return t, true
}

// Patch is a partial update applied by Update. Nil fields are left
// untouched. A non-empty Comment appends a comment event in the same
// call.
type Patch struct {
	Priority      *task.Priority
	Tags          []string
	Metadata      map[string]string
	ScheduledFor  *time.Time
	ClearSchedule bool
	Comment       string
	Actor         string
}

// Update merges the patch into the task and returns the updated
// snapshot. Returns false if the task does not exist.
func (q *Queue) Update(id string, p Patch) (*task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.Get(id)
	if err != nil {
		return nil, false
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), p.Tags...)
	}
	for k, v := range p.Metadata {
		if t.Metadata == nil {
			t.Metadata = make(map[string]string)
		}
		t.Metadata[k] = v
	}
	if p.ClearSchedule {
		t.ScheduledFor = nil
	} else if p.ScheduledFor != nil {
		s := *p.ScheduledFor
		t.ScheduledFor = &s
	}
	if p.Comment != "" {
		t.Events = append(t.Events, task.Event{
			Type:      task.EventComment,
			Message:   p.Comment,
			Actor:     p.Actor,
			Timestamp: q.now(),
		})
	}
	if err := q.store.Put(t); err != nil {
		q.log.Error("update task", "task", id, "error", err)
		return nil, false
	}
	return t.Clone(), true
}

// Remove deletes the task permanently. Returns false if absent.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Delete(id); err != nil {
		return false
	}
	q.log.Debug("task removed", "task", id)
	return true
}

// Snapshot returns every task in the queue, in insertion order.
func (q *Queue) Snapshot() []*task.Task {
	tasks, err := q.store.List()
	if err != nil {
		q.log.Error("snapshot", "error", err)
		return nil
	}
	return tasks
}

// Ready returns the queued tasks with no unsatisfied dependency.
func (q *Queue) Ready() []*task.Task {
	return graph.ReadyTasks(q.Snapshot())
}

// transition moves t to status, appending a status-change event. The
// caller holds q.mu and persists afterwards.
func (q *Queue) transition(t *task.Task, to task.Status, msg string) {
	from := t.Status
	t.Status = to
	t.Events = append(t.Events, task.Event{
		Type:      task.EventStatusChange,
		Message:   msg,
		Timestamp: q.now(),
	})
	q.log.Debug("task transition", "task", t.ID, "from", from, "to", to)
}
