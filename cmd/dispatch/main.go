// Command dispatch is the task queue CLI. It operates directly on the
// configured store; there is no daemon.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GoCodeAlone/dispatch/config"
	"github.com/GoCodeAlone/dispatch/internal/version"
	"github.com/GoCodeAlone/dispatch/queue"
	"github.com/GoCodeAlone/dispatch/task"
)

func main() {
	configPath := flag.String("config", "dispatch.yaml", "path to config file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	rest := args[1:]

	if cmd == "version" {
		fmt.Printf("dispatch %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.BuildDate)
		return
	}

	// a missing config file just means defaults
	cfg := config.DefaultConfig()
	if loaded, err := config.Load(*configPath); err == nil {
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		fatal(err)
	}

	q, cleanup, err := openQueue(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	app := &app{queue: q, cfg: cfg}

	switch cmd {
	case "add":
		err = app.cmdAdd(rest)
	case "list":
		err = app.cmdList(rest)
	case "show":
		err = app.cmdShow(rest)
	case "next":
		err = app.cmdNext(rest)
	case "claim":
		err = app.cmdClaim(rest)
	case "start":
		err = app.cmdStart(rest)
	case "progress":
		err = app.cmdProgress(rest)
	case "complete":
		err = app.cmdComplete(rest)
	case "fail":
		err = app.cmdFail(rest)
	case "cancel":
		err = app.cmdCancel(rest)
	case "wait":
		err = app.cmdWait(rest)
	case "stats":
		err = app.cmdStats(rest)
	case "plan":
		err = app.cmdPlan(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `dispatch — task queue CLI

Usage:
  dispatch [flags] <command> [args]

Flags:
  --config <path>  config file (default: dispatch.yaml)

Commands:
  version                        print version
  add <name>                     create a task
  list                           list tasks
  show <id>                      print one task as JSON
  next                           show the next task for a worker
  claim <id>                     claim a queued task
  start <id>                     start a task
  progress <id> <percent>        update task progress
  complete <id>                  complete a task
  fail <id>                      fail a task
  cancel <id>                    cancel a task
  wait <id>...                   wait for tasks to finish
  stats                          show queue statistics
  plan <file.yaml>               materialize a project file into the queue
`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func openQueue(cfg *config.Config) (*queue.Queue, func(), error) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	switch cfg.Store.Kind {
	case "memory":
		return queue.New(task.NewMemoryStore(), queue.WithLogger(logger)), func() {}, nil
	default:
		store, err := task.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Error("close store", "error", err)
			}
		}
		return queue.New(store, queue.WithLogger(logger)), cleanup, nil
	}
}

type app struct {
	queue *queue.Queue
	cfg   *config.Config
}

// workerFlags registers the shared worker identity flags.
func workerFlags(fs *flag.FlagSet) (*string, *string) {
	id := fs.String("worker", os.Getenv("DISPATCH_WORKER"), "worker ID (or $DISPATCH_WORKER)")
	typ := fs.String("worker-type", "agent", "worker type: human or agent")
	return id, typ
}

func worker(id, typ string) task.Worker {
	wt := task.WorkerAgent
	if typ == "human" {
		wt = task.WorkerHuman
	}
	return task.Worker{Type: wt, ID: id}
}

func (a *app) cmdAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fnType := fs.String("type", "generative", "function type: generative, code, human, agentic")
	priority := fs.String("priority", a.cfg.DefaultPriority, "priority: low, normal, high, urgent")
	tags := fs.String("tags", "", "comma-separated tags")
	projectID := fs.String("project", "", "project ID")
	after := fs.String("after", "", "comma-separated prerequisite task IDs")
	schedule := fs.Duration("in", 0, "schedule the task this far in the future")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: add <name>")
	}

	t := &task.Task{
		Function: task.Function{
			Type: task.FunctionType(*fnType),
			Name: strings.Join(fs.Args(), " "),
		},
		Priority:  task.ParsePriority(*priority),
		ProjectID: *projectID,
	}
	if *tags != "" {
		t.Tags = strings.Split(*tags, ",")
	}
	for _, dep := range splitList(*after) {
		t.Dependencies = append(t.Dependencies, task.BlockedBy(dep))
	}
	if *schedule > 0 {
		at := time.Now().Add(*schedule)
		t.ScheduledFor = &at
	}

	added, err := a.queue.Add(t)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s  [%s/%s]\n", added.ID, added.Function.Name, added.Status, added.Priority)
	return nil
}

func (a *app) cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	status := fs.String("status", "", "comma-separated statuses")
	projectID := fs.String("project", "", "project ID")
	tag := fs.String("tag", "", "tag to match")
	search := fs.String("search", "", "free-text search")
	limit := fs.Int("limit", 0, "max results")
	fs.Parse(args)

	f := queue.Filter{
		ProjectID: *projectID,
		Search:    *search,
		SortBy:    queue.SortByPriority,
		SortOrder: queue.SortDesc,
		Limit:     *limit,
	}
	for _, s := range splitList(*status) {
		f.Status = append(f.Status, task.Status(s))
	}
	if *tag != "" {
		f.Tags = []string{*tag}
	}

	for _, t := range a.queue.Query(f) {
		assignee := "-"
		if t.Assignment != nil {
			assignee = t.Assignment.Worker.ID
		}
		fmt.Printf("%-18s %-11s %-7s %-12s %s\n",
			t.ID, t.Status, t.Priority, assignee, t.Function.Name)
	}
	return nil
}

func (a *app) cmdShow(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: show <id>")
	}
	t, ok := a.queue.Get(args[0])
	if !ok {
		return fmt.Errorf("task %s not found", args[0])
	}
	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (a *app) cmdNext(args []string) error {
	fs := flag.NewFlagSet("next", flag.ExitOnError)
	id, typ := workerFlags(fs)
	fs.Parse(args)

	t, ok := a.queue.GetNextForWorker(worker(*id, *typ))
	if !ok {
		fmt.Println("nothing dispatchable")
		return nil
	}
	fmt.Printf("%s  %s  [%s]\n", t.ID, t.Function.Name, t.Priority)
	return nil
}

func (a *app) cmdClaim(args []string) error {
	fs := flag.NewFlagSet("claim", flag.ExitOnError)
	id, typ := workerFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: claim <id>")
	}
	if !a.queue.Claim(fs.Arg(0), worker(*id, *typ)) {
		return fmt.Errorf("task %s not claimable (missing, not queued, or already assigned)", fs.Arg(0))
	}
	fmt.Printf("claimed %s\n", fs.Arg(0))
	return nil
}

func (a *app) cmdStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	id, typ := workerFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: start <id>")
	}
	if !a.queue.Start(fs.Arg(0), worker(*id, *typ)) {
		return fmt.Errorf("task %s cannot start (missing or terminal)", fs.Arg(0))
	}
	fmt.Printf("started %s\n", fs.Arg(0))
	return nil
}

func (a *app) cmdProgress(args []string) error {
	fs := flag.NewFlagSet("progress", flag.ExitOnError)
	step := fs.String("step", "", "current step description")
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: progress <id> <percent>")
	}
	var percent int
	if _, err := fmt.Sscanf(fs.Arg(1), "%d", &percent); err != nil {
		return fmt.Errorf("bad percent %q", fs.Arg(1))
	}
	if !a.queue.UpdateProgress(fs.Arg(0), percent, *step) {
		return fmt.Errorf("task %s cannot take progress (missing or terminal)", fs.Arg(0))
	}
	return nil
}

func (a *app) cmdComplete(args []string) error {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	output := fs.String("output", "", "task output value")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: complete <id>")
	}
	res := a.queue.Complete(fs.Arg(0), *output)
	if !res.Success {
		return fmt.Errorf("complete %s: %s: %s", res.TaskID, res.Err.Code, res.Err.Message)
	}
	fmt.Printf("completed %s\n", res.TaskID)
	return nil
}

func (a *app) cmdFail(args []string) error {
	fs := flag.NewFlagSet("fail", flag.ExitOnError)
	reason := fs.String("error", "failed", "failure reason")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: fail <id>")
	}
	res := a.queue.Fail(fs.Arg(0), *reason)
	if res.Err != nil && res.Err.Code != queue.CodeFailed {
		return fmt.Errorf("fail %s: %s: %s", res.TaskID, res.Err.Code, res.Err.Message)
	}
	fmt.Printf("failed %s\n", res.TaskID)
	return nil
}

func (a *app) cmdCancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	reason := fs.String("reason", "", "cancellation reason")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: cancel <id>")
	}
	if !a.queue.Cancel(fs.Arg(0), *reason) {
		return fmt.Errorf("task %s cannot be cancelled (missing or terminal)", fs.Arg(0))
	}
	fmt.Printf("cancelled %s\n", fs.Arg(0))
	return nil
}

func (a *app) cmdWait(args []string) error {
	fs := flag.NewFlagSet("wait", flag.ExitOnError)
	timeout := fs.Duration("timeout", a.cfg.WaitTimeout, "wait budget per task")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: wait <id>...")
	}

	ids := fs.Args()
	results := make([]queue.TaskResult, len(ids))
	g, ctx := errgroup.WithContext(context.Background())
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = a.queue.Wait(ctx, id, *timeout)
			return nil
		})
	}
	_ = g.Wait() // waiters never return errors; results carry the outcomes

	failed := false
	for _, res := range results {
		if res.Success {
			fmt.Printf("%s  completed\n", res.TaskID)
			continue
		}
		failed = true
		fmt.Printf("%s  %s: %s\n", res.TaskID, res.Err.Code, res.Err.Message)
	}
	if failed {
		return fmt.Errorf("one or more tasks did not complete")
	}
	return nil
}

func (a *app) cmdStats(_ []string) error {
	s := a.queue.Stats()
	fmt.Printf("total: %d\n", s.Total)
	for _, st := range []task.Status{
		task.StatusPending, task.StatusBlocked, task.StatusQueued,
		task.StatusAssigned, task.StatusInProgress,
		task.StatusCompleted, task.StatusFailed, task.StatusCancelled,
	} {
		if n := s.ByStatus[st]; n > 0 {
			fmt.Printf("  %-12s %d\n", st, n)
		}
	}
	for _, p := range []task.Priority{
		task.PriorityUrgent, task.PriorityHigh, task.PriorityNormal, task.PriorityLow,
	} {
		if n := s.ByPriority[p]; n > 0 {
			fmt.Printf("  %-12s %d\n", p, n)
		}
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
