package queue

import "github.com/GoCodeAlone/dispatch/task"

// ErrorCode classifies why a queue operation did not succeed.
type ErrorCode string

const (
	CodeNotFound    ErrorCode = "TASK_NOT_FOUND"
	CodeFailed      ErrorCode = "TASK_FAILED"
	CodeCancelled   ErrorCode = "TASK_CANCELLED"
	CodeTerminal    ErrorCode = "TASK_TERMINAL" // task already reached a final state
	CodeWaitTimeout ErrorCode = "WAIT_TIMEOUT"
)

// ResultError describes a failed outcome.
type ResultError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

// TaskResult is the tagged outcome of Complete, Fail, and Wait. Exactly
// one of Output and Err is set when Success is true or false
// respectively.
type TaskResult struct {
	Success bool         `json:"success"`
	TaskID  string       `json:"task_id"`
	Output  *task.Output `json:"output,omitempty"`
	Err     *ResultError `json:"error,omitempty"`
}

func successResult(t *task.Task) TaskResult {
	return TaskResult{Success: true, TaskID: t.ID, Output: t.Output}
}

func errorResult(taskID string, code ErrorCode, msg string) TaskResult {
	return TaskResult{TaskID: taskID, Err: &ResultError{Code: code, Message: msg}}
}

// resultFor maps a terminal task to its TaskResult.
func resultFor(t *task.Task) TaskResult {
	switch t.Status {
	case task.StatusCompleted:
		return successResult(t)
	case task.StatusCancelled:
		return errorResult(t.ID, CodeCancelled, t.Error)
	default:
		return errorResult(t.ID, CodeFailed, t.Error)
	}
}
