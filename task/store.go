package task

import "errors"

// ErrNotFound is returned by stores when no task matches the given ID.
var ErrNotFound = errors.New("task not found")

// Store persists and retrieves tasks. Implementations must return
// clones: a task obtained from a store is never shared with queue-owned
// state. List returns tasks in insertion order.
type Store interface {
	// Put inserts the task or replaces an existing task with the same ID.
	Put(t *Task) error

	// Get retrieves a task by ID. Returns ErrNotFound if absent.
	Get(id string) (*Task, error)

	// Delete removes a task by ID. Returns ErrNotFound if absent.
	Delete(id string) error

	// List returns a snapshot of every task, in insertion order.
	List() ([]*Task, error)
}
