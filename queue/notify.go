package queue

import (
	"context"
	"sync"
	"time"

	"github.com/GoCodeAlone/dispatch/task"
)

// TaskUpdate is published on every status change of a task.
type TaskUpdate struct {
	TaskID string      `json:"task_id"`
	Status task.Status `json:"status"`
	Task   *task.Task  `json:"task"`
	At     time.Time   `json:"at"`
}

// watchRegistry routes task updates to subscribers. Sends never block:
// a subscriber that falls behind drops updates, which Wait tolerates by
// re-reading the store on subscribe.
type watchRegistry struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan TaskUpdate // taskID -> subscription ID -> channel
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{subs: make(map[string]map[int]chan TaskUpdate)}
}

func (r *watchRegistry) subscribe(taskID string) (<-chan TaskUpdate, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	ch := make(chan TaskUpdate, 32)
	if r.subs[taskID] == nil {
		r.subs[taskID] = make(map[int]chan TaskUpdate)
	}
	r.subs[taskID][id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[taskID], id)
		if len(r.subs[taskID]) == 0 {
			delete(r.subs, taskID)
		}
	}
}

func (r *watchRegistry) notify(u TaskUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs[u.TaskID] {
		select {
		case ch <- u:
		default:
		}
	}
}

// publish pushes the task's current state to watchers. Caller holds
// q.mu; the snapshot is a clone so subscribers cannot touch queue state.
func (q *Queue) publish(t *task.Task) {
	q.watch.notify(TaskUpdate{
		TaskID: t.ID,
		Status: t.Status,
		Task:   t.Clone(),
		At:     q.now(),
	})
}

// Watch subscribes to status updates for the given task. The returned
// cancel func must be called to release the subscription.
func (q *Queue) Watch(taskID string) (<-chan TaskUpdate, func()) {
	return q.watch.subscribe(taskID)
}

// Wait blocks until the task reaches a terminal status, the timeout
// elapses, or ctx is done. It always returns a tagged TaskResult and
// never an error: completed yields success with the output, failed and
// cancelled yield their error codes, a missing task yields
// TASK_NOT_FOUND, and an elapsed budget yields WAIT_TIMEOUT. A timeout
// of zero means no budget beyond ctx.
func (q *Queue) Wait(ctx context.Context, id string, timeout time.Duration) TaskResult {
	updates, cancel := q.watch.subscribe(id)
	defer cancel()

	// Snapshot after subscribing so a terminal transition between the
	// two steps cannot be missed.
	t, ok := q.Get(id)
	if !ok {
		return errorResult(id, CodeNotFound, "task not found")
	}
	if t.Status.Terminal() {
		return resultFor(t)
	}

	var timer <-chan time.Time
	if timeout > 0 {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		timer = tm.C
	}

	for {
		select {
		case u := <-updates:
			if u.Status.Terminal() {
				return resultFor(u.Task)
			}
		case <-timer:
			return errorResult(id, CodeWaitTimeout, "timed out waiting for task")
		case <-ctx.Done():
			return errorResult(id, CodeWaitTimeout, ctx.Err().Error())
		}
	}
}
