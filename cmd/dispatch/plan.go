package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/dispatch/project"
	"github.com/GoCodeAlone/dispatch/task"
)

// planFile is the YAML surface for the plan command. Each node is
// either a leaf task (title) or a parallel/sequential wrapper; the
// three forms are mutually exclusive.
type planFile struct {
	Name  string     `yaml:"name"`
	Owner string     `yaml:"owner"`
	Mode  string     `yaml:"mode"` // parallel (default) or sequential
	Tasks []planNode `yaml:"tasks"`
}

type planNode struct {
	Title       string     `yaml:"title"`
	Type        string     `yaml:"type"`
	Priority    string     `yaml:"priority"`
	Description string     `yaml:"description"`
	Tags        []string   `yaml:"tags"`
	Subtasks    []planNode `yaml:"subtasks"`
	Parallel    []planNode `yaml:"parallel"`
	Sequential  []planNode `yaml:"sequential"`
}

func (n planNode) group() (*project.Group, error) {
	forms := 0
	if n.Title != "" {
		forms++
	}
	if len(n.Parallel) > 0 {
		forms++
	}
	if len(n.Sequential) > 0 {
		forms++
	}
	if forms != 1 {
		return nil, fmt.Errorf("node must have exactly one of title, parallel, sequential")
	}

	switch {
	case len(n.Parallel) > 0:
		children, err := groups(n.Parallel)
		if err != nil {
			return nil, err
		}
		return project.Parallel(children...), nil
	case len(n.Sequential) > 0:
		children, err := groups(n.Sequential)
		if err != nil {
			return nil, err
		}
		return project.Sequential(children...), nil
	}

	opts := []project.TaskOption{
		project.WithDescription(n.Description),
		project.WithTags(n.Tags...),
	}
	if n.Priority != "" {
		opts = append(opts, project.WithPriority(task.ParsePriority(n.Priority)))
	}
	if n.Type != "" {
		opts = append(opts, project.WithFunctionType(task.FunctionType(n.Type)))
	}
	if len(n.Subtasks) > 0 {
		subs, err := groups(n.Subtasks)
		if err != nil {
			return nil, err
		}
		opts = append(opts, project.WithSubtasks(subs...))
	}
	return project.Task(n.Title, opts...), nil
}

func groups(nodes []planNode) ([]*project.Group, error) {
	out := make([]*project.Group, 0, len(nodes))
	for i, n := range nodes {
		g, err := n.group()
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (a *app) cmdPlan(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: plan <file.yaml>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read plan %s: %w", args[0], err)
	}
	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse plan %s: %w", args[0], err)
	}
	if pf.Name == "" {
		return fmt.Errorf("plan %s: name is required", args[0])
	}

	top, err := groups(pf.Tasks)
	if err != nil {
		return fmt.Errorf("plan %s: %w", args[0], err)
	}

	var popts []project.ProjectOption
	if pf.Owner != "" {
		popts = append(popts, project.WithOwner(pf.Owner))
	}
	if pf.Mode != "" {
		popts = append(popts, project.WithDefaultMode(project.GroupKind(pf.Mode)))
	}
	p := project.New(pf.Name, top, popts...)

	tasks, err := project.Materialize(p)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", pf.Name, err)
	}
	for _, t := range tasks {
		added, err := a.queue.Add(t)
		if err != nil {
			return err
		}
		fmt.Printf("%-18s %-8s %s\n", added.ID, added.Status, added.Function.Name)
	}
	fmt.Printf("materialized %d tasks for project %s\n", len(tasks), pf.Name)
	return nil
}
