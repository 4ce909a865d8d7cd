package queue

import (
	"github.com/GoCodeAlone/dispatch/graph"
	"github.com/GoCodeAlone/dispatch/task"
)

// GetNextForWorker returns the best task for the worker to pick up:
// queued, not scheduled for the future, all dependencies satisfied, and
// worker-type compatible. Selection is highest priority first; equal
// priorities fall back to oldest CreatedAt (FIFO is a documented
// policy, see DESIGN.md). Returns false when nothing is dispatchable.
//
// GetNextForWorker followed by Claim is not atomic as a pair: another
// worker may claim the task in between. Callers must treat a false
// Claim as "task taken" and fetch another.
func (q *Queue) GetNextForWorker(w task.Worker) (*task.Task, bool) {
	now := q.now()
	var best *task.Task
	for _, t := range q.Snapshot() {
		if t.Status != task.StatusQueued {
			continue
		}
		if t.ScheduledFor != nil && t.ScheduledFor.After(now) {
			continue
		}
		if !t.DependenciesSatisfied() || !t.WorkerAllowed(w) {
			continue
		}
		if best == nil ||
			t.Priority > best.Priority ||
			(t.Priority == best.Priority && t.CreatedAt.Before(best.CreatedAt)) {
			best = t
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// Claim atomically assigns a queued, unassigned task to the worker and
// moves it to assigned. Returns false without mutating anything if the
// task is missing, not queued, or already has an assignment. This is
// the one check-and-set the queue guarantees: two workers racing for
// the same task cannot both succeed.
func (q *Queue) Claim(id string, w task.Worker) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.Get(id)
	if err != nil || t.Assignment != nil || t.Status != task.StatusQueued {
		return false
	}
	t.Assignment = &task.Assignment{Worker: w, AssignedAt: q.now()}
	t.Events = append(t.Events, task.Event{
		Type:      task.EventAssigned,
		Actor:     w.ID,
		Timestamp: q.now(),
	})
	q.transition(t, task.StatusAssigned, "claimed by "+w.ID)
	if err := q.store.Put(t); err != nil {
		q.log.Error("claim task", "task", id, "error", err)
		return false
	}
	q.publish(t)
	return true
}

// Start moves a non-terminal task to in_progress, setting or
// overwriting the assignment. Returns false if the task is missing or
// already terminal.
func (q *Queue) Start(id string, w task.Worker) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.Get(id)
	if err != nil || t.Status.Terminal() {
		return false
	}
	t.Assignment = &task.Assignment{Worker: w, AssignedAt: q.now()}
	q.transition(t, task.StatusInProgress, "started by "+w.ID)
	if err := q.store.Put(t); err != nil {
		q.log.Error("start task", "task", id, "error", err)
		return false
	}
	q.publish(t)
	return true
}

// UpdateProgress overwrites the task's progress wholesale. Valid only
// while the task is non-terminal; the status does not change.
func (q *Queue) UpdateProgress(id string, percent int, step string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.Get(id)
	if err != nil || t.Status.Terminal() {
		return false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.Progress = &task.Progress{Percent: percent, Step: step, UpdatedAt: q.now()}
	t.Events = append(t.Events, task.Event{
		Type:      task.EventProgress,
		Message:   step,
		Timestamp: q.now(),
	})
	if err := q.store.Put(t); err != nil {
		q.log.Error("update progress", "task", id, "error", err)
		return false
	}
	return true
}

// Complete moves a non-terminal task to completed, wraps the output,
// and synchronously cascades dependency satisfaction: every dependant's
// matching edge is marked satisfied, and dependants whose last
// unsatisfied edge this was move from blocked to queued. The cascade is
// fully applied before Complete returns, so an immediately following
// GetNextForWorker observes the newly unblocked tasks.
func (q *Queue) Complete(id string, output any) TaskResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.Get(id)
	if err != nil {
		return errorResult(id, CodeNotFound, "task not found")
	}
	if t.Status.Terminal() {
		return errorResult(id, CodeTerminal, "task already "+string(t.Status))
	}
	now := q.now()
	t.Output = &task.Output{Value: output, ProducedAt: now}
	q.transition(t, task.StatusCompleted, "completed")
	if err := q.store.Put(t); err != nil {
		q.log.Error("complete task", "task", id, "error", err)
		return errorResult(id, CodeFailed, err.Error())
	}
	q.publish(t)
	q.cascade(id)
	return successResult(t)
}

// cascade marks the completed task's edges satisfied on every dependant
// and unblocks dependants whose dependencies are now all satisfied.
// Caller holds q.mu.
func (q *Queue) cascade(completedID string) {
	tasks, err := q.store.List()
	if err != nil {
		q.log.Error("cascade list", "task", completedID, "error", err)
		return
	}
	for _, dep := range graph.Dependants(completedID, tasks) {
		for i := range dep.Dependencies {
			if dep.Dependencies[i].TaskID == completedID {
				dep.Dependencies[i].Satisfied = true
			}
		}
		if dep.Status == task.StatusBlocked && dep.DependenciesSatisfied() {
			q.transition(dep, task.StatusQueued, "unblocked by "+completedID)
		}
		if err := q.store.Put(dep); err != nil {
			q.log.Error("cascade put", "task", dep.ID, "error", err)
			continue
		}
		q.publish(dep)
	}
}

// Fail moves a non-terminal task to failed, recording the error in the
// event log. Failure does not cascade: dependants of a failed task stay
// blocked until an operator intervenes. That silent-deadlock risk is
// documented behavior, preserved deliberately.
func (q *Queue) Fail(id string, errMsg string) TaskResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.Get(id)
	if err != nil {
		return errorResult(id, CodeNotFound, "task not found")
	}
	if t.Status.Terminal() {
		return errorResult(id, CodeTerminal, "task already "+string(t.Status))
	}
	t.Error = errMsg
	q.transition(t, task.StatusFailed, errMsg)
	if err := q.store.Put(t); err != nil {
		q.log.Error("fail task", "task", id, "error", err)
		return errorResult(id, CodeFailed, err.Error())
	}
	q.log.Warn("task failed", "task", id, "error", errMsg)
	q.publish(t)
	return errorResult(id, CodeFailed, errMsg)
}

// Cancel moves a non-terminal task to cancelled. Bookkeeping only: an
// in-flight worker is not signalled; stopping the actual work is the
// worker's problem. Returns false if the task is missing or already
// terminal.
func (q *Queue) Cancel(id string, reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.Get(id)
	if err != nil || t.Status.Terminal() {
		return false
	}
	t.Error = reason
	q.transition(t, task.StatusCancelled, reason)
	if err := q.store.Put(t); err != nil {
		q.log.Error("cancel task", "task", id, "error", err)
		return false
	}
	q.publish(t)
	return true
}
