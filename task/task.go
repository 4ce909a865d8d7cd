// Package task defines the schedulable work item model and its persistence.
package task

import "time"

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"   // scheduled for a future time
	StatusBlocked    Status = "blocked"   // waiting on unsatisfied dependencies
	StatusQueued     Status = "queued"    // ready to be dispatched
	StatusAssigned   Status = "assigned"  // claimed by a worker, not yet started
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s is a final state. Terminal tasks never
// transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Priority determines task scheduling order.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	}
	return "unknown"
}

// ParsePriority converts a priority name to its ordinal. Unknown names
// map to PriorityNormal.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "urgent":
		return PriorityUrgent
	}
	return PriorityNormal
}

// FunctionType identifies the kind of work a task performs.
type FunctionType string

const (
	FunctionGenerative FunctionType = "generative" // AI-generated output
	FunctionCode       FunctionType = "code"       // executes provided code
	FunctionHuman      FunctionType = "human"      // requires a person
	FunctionAgentic    FunctionType = "agentic"    // autonomous agent work
)

// Function describes what kind of work a task performs and its I/O
// contract. It is immutable once attached to a task.
type Function struct {
	Type         FunctionType   `json:"type"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Args         map[string]any `json:"args,omitempty"`   // JSON Schema
	Output       map[string]any `json:"output,omitempty"` // JSON Schema
	Code         string         `json:"code,omitempty"`
	Language     string         `json:"language,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Tools        []string       `json:"tools,omitempty"`
}

// WorkerType classifies who may execute a task.
type WorkerType string

const (
	WorkerHuman WorkerType = "human"
	WorkerAgent WorkerType = "agent"
	WorkerAny   WorkerType = "any" // wildcard, valid only in allowed-worker sets
)

// Worker identifies an entity capable of claiming and executing tasks.
// Workers are supplied by the caller; the queue never creates them.
type Worker struct {
	Type WorkerType `json:"type"`
	ID   string     `json:"id"`
	Name string     `json:"name,omitempty"`
}

// DefaultAllowedWorkers returns the worker types eligible for a function
// type when a task does not specify its own set.
func DefaultAllowedWorkers(ft FunctionType) []WorkerType {
	switch ft {
	case FunctionHuman:
		return []WorkerType{WorkerHuman}
	case FunctionAgentic:
		return []WorkerType{WorkerAgent}
	}
	return []WorkerType{WorkerAny}
}

// DependencyBlockedBy is the only dependency edge type: the owning task
// cannot become ready until the referenced task completes.
const DependencyBlockedBy = "blocked_by"

// Dependency is a directed constraint on another task in the same
// collection. Dangling TaskID references are a caller error; they are
// never auto-repaired.
type Dependency struct {
	Type      string `json:"type"`
	TaskID    string `json:"task_id"`
	Satisfied bool   `json:"satisfied"`
}

// BlockedBy constructs an unsatisfied blocked_by dependency on taskID.
func BlockedBy(taskID string) Dependency {
	return Dependency{Type: DependencyBlockedBy, TaskID: taskID}
}

// Assignment records which worker holds a task.
type Assignment struct {
	Worker     Worker    `json:"worker"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Progress is free-form completion state, overwritten wholesale on each
// update.
type Progress struct {
	Percent   int       `json:"percent"` // 0..100
	Step      string    `json:"step,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventType identifies the kind of task event.
type EventType string

const (
	EventCreated      EventType = "created"
	EventComment      EventType = "comment"
	EventStatusChange EventType = "status_change"
	EventAssigned     EventType = "assigned"
	EventProgress     EventType = "progress"
)

// Event is an append-only log entry on a task. Events are never mutated
// or removed.
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Output wraps a completed task's result value.
type Output struct {
	Value      any       `json:"value"`
	ProducedAt time.Time `json:"produced_at"`
}

// Task is a unit of schedulable work. Once added to a queue it is owned
// by the queue and mutated only through queue operations. ID and
// Function never change for the life of the task.
type Task struct {
	ID             string            `json:"id"`
	Function       Function          `json:"function"`
	Status         Status            `json:"status"`
	Priority       Priority          `json:"priority"`
	Dependencies   []Dependency      `json:"dependencies,omitempty"`
	AllowedWorkers []WorkerType      `json:"allowed_workers,omitempty"`
	Assignment     *Assignment       `json:"assignment,omitempty"`
	Progress       *Progress         `json:"progress,omitempty"`
	Output         *Output           `json:"output,omitempty"`
	Error          string            `json:"error,omitempty"`
	ScheduledFor   *time.Time        `json:"scheduled_for,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	ProjectID      string            `json:"project_id,omitempty"`
	ParentID       string            `json:"parent_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Events         []Event           `json:"events,omitempty"`
}

// InitialStatus resolves the status a newly created task starts in,
// evaluated in priority order: future schedule, unsatisfied
// dependencies, explicit assignment, else ready.
func (t *Task) InitialStatus(now time.Time) Status {
	switch {
	case t.ScheduledFor != nil && t.ScheduledFor.After(now):
		return StatusPending
	case len(t.Dependencies) > 0 && !t.DependenciesSatisfied():
		return StatusBlocked
	case t.Assignment != nil:
		return StatusAssigned
	}
	return StatusQueued
}

// DependenciesSatisfied reports whether every dependency of the task has
// been satisfied. A task with no dependencies is trivially satisfied.
func (t *Task) DependenciesSatisfied() bool {
	for _, d := range t.Dependencies {
		if !d.Satisfied {
			return false
		}
	}
	return true
}

// WorkerAllowed reports whether w's type intersects the task's
// allowed-worker set. An empty set defaults from the function type; the
// WorkerAny wildcard admits every worker.
func (t *Task) WorkerAllowed(w Worker) bool {
	allowed := t.AllowedWorkers
	if len(allowed) == 0 {
		allowed = DefaultAllowedWorkers(t.Function.Type)
	}
	for _, a := range allowed {
		if a == WorkerAny || a == w.Type {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task. Stores hand out clones so
// callers can never mutate queue-owned state in place.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Dependencies != nil {
		cp.Dependencies = append([]Dependency(nil), t.Dependencies...)
	}
	if t.AllowedWorkers != nil {
		cp.AllowedWorkers = append([]WorkerType(nil), t.AllowedWorkers...)
	}
	if t.Tags != nil {
		cp.Tags = append([]string(nil), t.Tags...)
	}
	if t.Events != nil {
		cp.Events = append([]Event(nil), t.Events...)
	}
	if t.Metadata != nil {
		cp.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	if t.Assignment != nil {
		a := *t.Assignment
		cp.Assignment = &a
	}
	if t.Progress != nil {
		p := *t.Progress
		cp.Progress = &p
	}
	if t.Output != nil {
		o := *t.Output
		cp.Output = &o
	}
	if t.ScheduledFor != nil {
		s := *t.ScheduledFor
		cp.ScheduledFor = &s
	}
	return &cp
}
