package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/GoCodeAlone/dispatch/task"
)

var (
	// ErrCycle means the materialized dependency edges form a cycle.
	ErrCycle = errors.New("project dependencies contain a cycle")

	// ErrDanglingDependency means an edge references a task outside the
	// materialized set.
	ErrDanglingDependency = errors.New("dependency references a task outside the project")
)

// Materialize flattens the project tree into concrete tasks with
// blocked_by edges, depth first. IDs are index-derived and stable
// across the call. Sequential groups chain: every task of element k is
// blocked by every task of element k-1. Parallel groups create no
// sibling edges. Subtasks materialize as their own tasks with ParentID
// set and no implicit edges. The result is validated before returning:
// all edges must resolve inside the set and must not form a cycle.
func Materialize(p *Project) ([]*task.Task, error) {
	m := &materializer{projectID: slug(p.Name)}

	mode := p.DefaultMode
	if mode == "" {
		mode = KindParallel
	}
	root := &Group{Kind: mode, Children: p.Groups}
	if mode == KindTask {
		// a task-mode project is just its groups side by side
		root.Kind = KindParallel
	}
	m.walk(root)

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m.tasks, nil
}

type materializer struct {
	projectID string
	counter   int
	tasks     []*task.Task
}

// walk materializes one group and returns every task created in its
// subtree, in creation order.
func (m *materializer) walk(g *Group) []*task.Task {
	switch g.Kind {
	case KindTask:
		return m.leaf(g)
	case KindSequential:
		var all, prev []*task.Task
		for _, child := range g.Children {
			cur := m.walk(child)
			for _, t := range cur {
				for _, before := range prev {
					t.Dependencies = append(t.Dependencies, task.BlockedBy(before.ID))
				}
			}
			all = append(all, cur...)
			prev = cur
		}
		return all
	default: // KindParallel
		var all []*task.Task
		for _, child := range g.Children {
			all = append(all, m.walk(child)...)
		}
		return all
	}
}

// leaf materializes a task node and its subtasks.
func (m *materializer) leaf(g *Group) []*task.Task {
	t := m.newTask(g)
	out := []*task.Task{t}
	for _, sub := range g.Subtasks {
		for _, st := range m.leaf(sub) {
			if st.ParentID == "" {
				st.ParentID = t.ID
			}
			out = append(out, st)
		}
	}
	return out
}

func (m *materializer) newTask(g *Group) *task.Task {
	m.counter++
	t := &task.Task{
		ID:        fmt.Sprintf("%s-%03d", m.projectID, m.counter),
		Priority:  g.Priority,
		Tags:      append([]string(nil), g.Tags...),
		ProjectID: m.projectID,
		Status:    task.StatusQueued,
	}
	if g.Function != nil {
		t.Function = *g.Function
	} else {
		ft := g.FunctionType
		if ft == "" {
			ft = task.FunctionGenerative
		}
		t.Function = task.Function{
			Type:        ft,
			Name:        g.Title,
			Description: g.Description,
		}
	}
	m.tasks = append(m.tasks, t)
	return t
}

// validate checks that every edge resolves inside the materialized set
// and that the edges are acyclic, then fixes task statuses so edges
// actually block.
func (m *materializer) validate() error {
	byID := make(map[string]bool, len(m.tasks))
	for _, t := range m.tasks {
		byID[t.ID] = true
	}

	var edges []toposort.Edge
	for _, t := range m.tasks {
		if len(t.Dependencies) == 0 {
			edges = append(edges, toposort.Edge{nil, t.ID})
			continue
		}
		for _, d := range t.Dependencies {
			if !byID[d.TaskID] {
				return fmt.Errorf("task %s: %w: %s", t.ID, ErrDanglingDependency, d.TaskID)
			}
			edges = append(edges, toposort.Edge{d.TaskID, t.ID})
		}
	}
	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("%w: %v", ErrCycle, err)
	}

	for _, t := range m.tasks {
		if len(t.Dependencies) > 0 {
			t.Status = task.StatusBlocked
		}
	}
	return nil
}

// slug derives a stable project identifier from the project name.
func slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "project"
	}
	return out
}
