package task

import (
	"testing"
	"time"
)

func TestInitialStatus(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		task Task
		want Status
	}{
		{"no deps no schedule", Task{}, StatusQueued},
		{"future schedule", Task{ScheduledFor: &future}, StatusPending},
		{"past schedule", Task{ScheduledFor: &past}, StatusQueued},
		{"with deps", Task{Dependencies: []Dependency{BlockedBy("other")}}, StatusBlocked},
		{"satisfied deps", Task{Dependencies: []Dependency{{Type: DependencyBlockedBy, TaskID: "other", Satisfied: true}}}, StatusQueued},
		{"assigned at creation", Task{Assignment: &Assignment{Worker: Worker{Type: WorkerAgent, ID: "a1"}}}, StatusAssigned},
		{"schedule beats deps", Task{ScheduledFor: &future, Dependencies: []Dependency{BlockedBy("other")}}, StatusPending},
		{"deps beat assignment", Task{
			Dependencies: []Dependency{BlockedBy("other")},
			Assignment:   &Assignment{Worker: Worker{Type: WorkerAgent, ID: "a1"}},
		}, StatusBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.InitialStatus(now); got != tt.want {
				t.Errorf("InitialStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	live := []Status{StatusPending, StatusBlocked, StatusQueued, StatusAssigned, StatusInProgress}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestDefaultAllowedWorkers(t *testing.T) {
	tests := []struct {
		ft   FunctionType
		want WorkerType
	}{
		{FunctionHuman, WorkerHuman},
		{FunctionAgentic, WorkerAgent},
		{FunctionGenerative, WorkerAny},
		{FunctionCode, WorkerAny},
	}
	for _, tt := range tests {
		got := DefaultAllowedWorkers(tt.ft)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("DefaultAllowedWorkers(%s) = %v, want [%s]", tt.ft, got, tt.want)
		}
	}
}

func TestWorkerAllowed(t *testing.T) {
	human := Worker{Type: WorkerHuman, ID: "alice"}
	agent := Worker{Type: WorkerAgent, ID: "bot-1"}

	humanTask := Task{Function: Function{Type: FunctionHuman, Name: "review"}}
	if !humanTask.WorkerAllowed(human) {
		t.Error("human task should allow human worker")
	}
	if humanTask.WorkerAllowed(agent) {
		t.Error("human task should not allow agent worker")
	}

	genTask := Task{Function: Function{Type: FunctionGenerative, Name: "draft"}}
	if !genTask.WorkerAllowed(human) || !genTask.WorkerAllowed(agent) {
		t.Error("generative task should allow any worker via wildcard")
	}

	// explicit set overrides the function-type default
	restricted := Task{
		Function:       Function{Type: FunctionGenerative, Name: "draft"},
		AllowedWorkers: []WorkerType{WorkerAgent},
	}
	if restricted.WorkerAllowed(human) {
		t.Error("explicit allowed set should exclude human worker")
	}
	if !restricted.WorkerAllowed(agent) {
		t.Error("explicit allowed set should include agent worker")
	}
}

func TestParsePriority(t *testing.T) {
	if ParsePriority("urgent") != PriorityUrgent {
		t.Error("urgent should parse to PriorityUrgent")
	}
	if ParsePriority("bogus") != PriorityNormal {
		t.Error("unknown priority should default to normal")
	}
	if PriorityLow >= PriorityNormal || PriorityNormal >= PriorityHigh || PriorityHigh >= PriorityUrgent {
		t.Error("priority ordinals out of order")
	}
}

func TestClone_Independence(t *testing.T) {
	now := time.Now()
	orig := &Task{
		ID:           "t1",
		Function:     Function{Type: FunctionCode, Name: "build"},
		Status:       StatusQueued,
		Dependencies: []Dependency{BlockedBy("t0")},
		Tags:         []string{"ci"},
		Metadata:     map[string]string{"k": "v"},
		Progress:     &Progress{Percent: 10},
		ScheduledFor: &now,
	}
	cp := orig.Clone()

	cp.Dependencies[0].Satisfied = true
	cp.Tags[0] = "changed"
	cp.Metadata["k"] = "changed"
	cp.Progress.Percent = 99

	if orig.Dependencies[0].Satisfied {
		t.Error("clone shares Dependencies slice with original")
	}
	if orig.Tags[0] != "ci" {
		t.Error("clone shares Tags slice with original")
	}
	if orig.Metadata["k"] != "v" {
		t.Error("clone shares Metadata map with original")
	}
	if orig.Progress.Percent != 10 {
		t.Error("clone shares Progress pointer with original")
	}
}
