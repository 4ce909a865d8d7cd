// Package graph provides pure dependency-graph queries over task
// snapshots. Nothing here mutates a task or consults a store; callers
// pass the collection they want analyzed.
package graph

import "github.com/GoCodeAlone/dispatch/task"

// Dependants returns every task whose dependency list references
// taskID.
func Dependants(taskID string, tasks []*task.Task) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		for _, d := range t.Dependencies {
			if d.TaskID == taskID {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Dependencies returns the prerequisite tasks referenced by t's
// dependency list. Dangling references are skipped; they are a caller
// error, not repaired here.
func Dependencies(t *task.Task, tasks []*task.Task) []*task.Task {
	byID := index(tasks)
	var out []*task.Task
	for _, d := range t.Dependencies {
		if prereq, ok := byID[d.TaskID]; ok {
			out = append(out, prereq)
		}
	}
	return out
}

// ReadyTasks returns the queued tasks with no unsatisfied dependency,
// in input order. The satisfied flag is authoritative: readiness is not
// re-derived from prerequisite statuses.
func ReadyTasks(tasks []*task.Task) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		if t.Status == task.StatusQueued && t.DependenciesSatisfied() {
			out = append(out, t)
		}
	}
	return out
}

// dfs colors for HasCycles.
const (
	white = iota // unvisited
	gray         // on the current path
	black        // fully explored
)

// HasCycles reports whether the blocked_by edges over tasks contain a
// cycle. Edges to tasks outside the snapshot are ignored.
func HasCycles(tasks []*task.Task) bool {
	byID := index(tasks)
	color := make(map[string]int, len(tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, d := range byID[id].Dependencies {
			next, ok := byID[d.TaskID]
			if !ok {
				continue
			}
			switch color[next.ID] {
			case gray:
				return true
			case white:
				if visit(next.ID) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, t := range tasks {
		if color[t.ID] == white && visit(t.ID) {
			return true
		}
	}
	return false
}

// Sort returns the tasks in a valid topological order: every task
// appears after all of its in-snapshot prerequisites. The order is
// stable, preserving input order among tasks that become ready in the
// same round (Kahn's algorithm). Tasks caught on a cycle cannot be
// ordered and are appended at the end in input order.
func Sort(tasks []*task.Task) []*task.Task {
	byID := index(tasks)

	indegree := make(map[string]int, len(tasks))
	dependants := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, d := range t.Dependencies {
			if _, ok := byID[d.TaskID]; !ok {
				continue
			}
			indegree[t.ID]++
			dependants[d.TaskID] = append(dependants[d.TaskID], t.ID)
		}
	}

	var queue []string
	for _, t := range tasks {
		if indegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	out := make([]*task.Task, 0, len(tasks))
	placed := make(map[string]bool, len(tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, byID[id])
		placed[id] = true
		for _, dep := range dependants[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(out) < len(tasks) {
		for _, t := range tasks {
			if !placed[t.ID] {
				out = append(out, t)
			}
		}
	}
	return out
}

func index(tasks []*task.Task) map[string]*task.Task {
	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID
}
