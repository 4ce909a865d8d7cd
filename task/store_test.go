package task

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// stores returns one factory per Store implementation so every
// conformance test runs against both.
func stores(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			path := filepath.Join(t.TempDir(), "tasks.db")
			store, err := NewSQLiteStore(path)
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func sampleTask(id string) *Task {
	return &Task{
		ID:        id,
		Function:  Function{Type: FunctionGenerative, Name: "summarize"},
		Status:    StatusQueued,
		Priority:  PriorityNormal,
		Tags:      []string{"docs"},
		Metadata:  map[string]string{"origin": "test"},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_PutAndGet(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			in := sampleTask("t1")
			in.Dependencies = []Dependency{BlockedBy("t0")}
			in.Events = []Event{{Type: EventCreated, Timestamp: in.CreatedAt}}
			if err := store.Put(in); err != nil {
				t.Fatalf("Put: %v", err)
			}

			got, err := store.Get("t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Function.Name != "summarize" {
				t.Errorf("Function.Name = %q, want summarize", got.Function.Name)
			}
			if got.Status != StatusQueued {
				t.Errorf("Status = %q, want queued", got.Status)
			}
			if len(got.Dependencies) != 1 || got.Dependencies[0].TaskID != "t0" {
				t.Errorf("Dependencies = %v, want one on t0", got.Dependencies)
			}
			if len(got.Events) != 1 || got.Events[0].Type != EventCreated {
				t.Errorf("Events = %v, want one created event", got.Events)
			}
			if got.Metadata["origin"] != "test" {
				t.Errorf("Metadata origin = %q, want test", got.Metadata["origin"])
			}
		})
	}
}

func TestStore_GetNotFound(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_PutReplaces(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			in := sampleTask("t1")
			if err := store.Put(in); err != nil {
				t.Fatalf("Put: %v", err)
			}
			in.Status = StatusCompleted
			in.Output = &Output{Value: "done", ProducedAt: time.Now().UTC()}
			if err := store.Put(in); err != nil {
				t.Fatalf("Put replace: %v", err)
			}

			got, err := store.Get("t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != StatusCompleted {
				t.Errorf("Status = %q, want completed", got.Status)
			}
			if got.Output == nil || got.Output.Value != "done" {
				t.Errorf("Output = %v, want done", got.Output)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			if err := store.Put(sampleTask("t1")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Delete("t1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get("t1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete = %v, want ErrNotFound", err)
			}
			if err := store.Delete("t1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_ListInsertionOrder(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			for _, id := range []string{"a", "b", "c"} {
				if err := store.Put(sampleTask(id)); err != nil {
					t.Fatalf("Put %s: %v", id, err)
				}
			}
			// replacing b must not move it
			b := sampleTask("b")
			b.Status = StatusInProgress
			if err := store.Put(b); err != nil {
				t.Fatalf("Put replace b: %v", err)
			}

			all, err := store.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("List: got %d tasks, want 3", len(all))
			}
			for i, want := range []string{"a", "b", "c"} {
				if all[i].ID != want {
					t.Errorf("List[%d] = %q, want %q", i, all[i].ID, want)
				}
			}
		})
	}
}

func TestStore_HandsOutClones(t *testing.T) {
	store := NewMemoryStore()
	in := sampleTask("t1")
	in.Dependencies = []Dependency{BlockedBy("t0")}
	if err := store.Put(in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get("t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Dependencies[0].Satisfied = true
	got.Status = StatusFailed

	again, err := store.Get("t1")
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if again.Dependencies[0].Satisfied || again.Status != StatusQueued {
		t.Error("mutating a returned task leaked into the store")
	}
}
