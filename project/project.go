// Package project provides the declarative project DSL and the
// materializer that flattens a group tree into concrete tasks with
// dependency edges. A project exists only until it is materialized; it
// is not itself schedulable.
package project

import "github.com/GoCodeAlone/dispatch/task"

// GroupKind tags a node in a project's group tree.
type GroupKind string

const (
	KindTask       GroupKind = "task"       // leaf, materializes to one Task
	KindParallel   GroupKind = "parallel"   // children run concurrently
	KindSequential GroupKind = "sequential" // each child waits for the previous
)

// Group is one node of the declarative tree. Leaf nodes carry task
// attributes and optional subtasks; parallel and sequential nodes carry
// children.
type Group struct {
	Kind         GroupKind
	Title        string
	Description  string
	Priority     task.Priority
	Tags         []string
	Function     *task.Function // full descriptor; overrides FunctionType
	FunctionType task.FunctionType
	Subtasks     []*Group // leaf only; materialize with ParentID set
	Children     []*Group // parallel/sequential only
}

// TaskOption configures a leaf group.
type TaskOption func(*Group)

// WithPriority sets the task priority.
func WithPriority(p task.Priority) TaskOption {
	return func(g *Group) { g.Priority = p }
}

// WithDescription sets the task description.
func WithDescription(d string) TaskOption {
	return func(g *Group) { g.Description = d }
}

// WithTags sets the task tags.
func WithTags(tags ...string) TaskOption {
	return func(g *Group) { g.Tags = tags }
}

// WithFunctionType sets the execution kind without a full descriptor.
func WithFunctionType(ft task.FunctionType) TaskOption {
	return func(g *Group) { g.FunctionType = ft }
}

// WithFunction attaches a complete function descriptor.
func WithFunction(fn task.Function) TaskOption {
	return func(g *Group) { g.Function = &fn }
}

// WithSubtasks nests leaf groups under this task. Subtasks materialize
// as their own tasks with ParentID set; they do not implicitly depend
// on the parent or on each other.
func WithSubtasks(subtasks ...*Group) TaskOption {
	return func(g *Group) { g.Subtasks = subtasks }
}

// Task builds a leaf group node.
func Task(title string, opts ...TaskOption) *Group {
	g := &Group{
		Kind:         KindTask,
		Title:        title,
		Priority:     task.PriorityNormal,
		FunctionType: task.FunctionGenerative,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Parallel wraps groups so that no dependency edges are created among
// them.
func Parallel(children ...*Group) *Group {
	return &Group{Kind: KindParallel, Children: children}
}

// Sequential wraps groups so that each element is blocked by the
// element immediately before it.
func Sequential(children ...*Group) *Group {
	return &Group{Kind: KindSequential, Children: children}
}

// Project is a named group tree plus project-level metadata.
type Project struct {
	Name        string
	Owner       string
	DefaultMode GroupKind // how top-level groups relate; KindParallel if unset
	Metadata    map[string]string
	Groups      []*Group
}

// ProjectOption configures a Project.
type ProjectOption func(*Project)

// WithOwner sets the project owner.
func WithOwner(owner string) ProjectOption {
	return func(p *Project) { p.Owner = owner }
}

// WithDefaultMode sets how the top-level groups relate to each other.
func WithDefaultMode(mode GroupKind) ProjectOption {
	return func(p *Project) { p.DefaultMode = mode }
}

// WithMetadata sets project-level metadata.
func WithMetadata(md map[string]string) ProjectOption {
	return func(p *Project) { p.Metadata = md }
}

// New creates a project from the given top-level groups.
func New(name string, groups []*Group, opts ...ProjectOption) *Project {
	p := &Project{
		Name:        name,
		DefaultMode: KindParallel,
		Groups:      groups,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
