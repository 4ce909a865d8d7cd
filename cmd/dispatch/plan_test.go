package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GoCodeAlone/dispatch/config"
	"github.com/GoCodeAlone/dispatch/queue"
	"github.com/GoCodeAlone/dispatch/task"
)

func TestPlanNode_Group(t *testing.T) {
	n := planNode{
		Title:    "review",
		Type:     "human",
		Priority: "high",
		Tags:     []string{"qa"},
	}
	g, err := n.group()
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if g.Title != "review" || g.FunctionType != task.FunctionHuman || g.Priority != task.PriorityHigh {
		t.Errorf("group = %+v", g)
	}

	if _, err := (planNode{}).group(); err == nil {
		t.Error("empty node should be rejected")
	}
	both := planNode{Title: "x", Parallel: []planNode{{Title: "y"}}}
	if _, err := both.group(); err == nil {
		t.Error("node with two forms should be rejected")
	}
}

func TestCmdPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	plan := `
name: Release Train
mode: sequential
tasks:
  - title: cut branch
  - parallel:
      - title: build
      - title: changelog
  - title: sign off
    type: human
`
	if err := os.WriteFile(path, []byte(plan), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	a := &app{queue: queue.New(nil), cfg: config.DefaultConfig()}
	if err := a.cmdPlan([]string{path}); err != nil {
		t.Fatalf("cmdPlan: %v", err)
	}

	tasks := a.queue.Query(queue.Filter{ProjectID: "release-train"})
	if len(tasks) != 4 {
		t.Fatalf("materialized %d tasks, want 4", len(tasks))
	}

	ready := a.queue.Ready()
	if len(ready) != 1 || ready[0].Function.Name != "cut branch" {
		t.Fatalf("ready = %d tasks, want just cut branch", len(ready))
	}
}
