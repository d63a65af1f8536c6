// Package shell implements tally's timer commands, both as one-shot CLI
// invocations and as an interactive prompt that keeps the tick loop running.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/harrisonrobin/tally/pkg/clock"
	"github.com/harrisonrobin/tally/pkg/logger"
	"github.com/harrisonrobin/tally/pkg/report"
	"github.com/harrisonrobin/tally/pkg/taskwarrior"
	"github.com/harrisonrobin/tally/pkg/timer"
	"github.com/harrisonrobin/tally/pkg/util"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage")

// Env is everything the timer commands operate on. Reporter and Catalog are
// resolved lazily so commands that don't need them work offline.
type Env struct {
	Store    *timer.Store
	Clock    clock.Clock
	Reporter func(ctx context.Context) (report.Reporter, error)
	Catalog  func() (taskwarrior.Catalog, error)

	catalogOnce sync.Once
	catalog     taskwarrior.Catalog
}

func (e *Env) tasks() taskwarrior.Catalog {
	e.catalogOnce.Do(func() {
		if e.Catalog == nil {
			return
		}
		cat, err := e.Catalog()
		if err != nil {
			logger.Warn("task catalog unavailable", "error", err.Error())
			return
		}
		e.catalog = cat
	})
	return e.catalog
}

// Exec runs one command and writes its output to w.
func (e *Env) Exec(ctx context.Context, w io.Writer, args []string) error {
	if len(args) == 0 {
		return e.list(w)
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "list", "ls":
		return e.list(w)
	case "add", "new":
		t, err := e.Store.Add()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Added timer %s\n", shortID(t.ID))
		return nil
	case "assign", "task":
		if len(rest) != 2 {
			return fmt.Errorf("%w: assign <timer> <task>", ErrUsage)
		}
		return e.assign(w, rest[0], rest[1])
	case "toggle", "start", "stop":
		if len(rest) != 1 {
			return fmt.Errorf("%w: %s <timer>", ErrUsage, cmd)
		}
		return e.startStop(w, cmd, rest[0])
	case "delete", "rm":
		if len(rest) != 1 {
			return fmt.Errorf("%w: delete <timer>", ErrUsage)
		}
		id, err := e.Store.Resolve(rest[0])
		if err != nil {
			return err
		}
		if err := e.Store.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted timer %s\n", shortID(id))
		return nil
	case "commit":
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("%w: commit <timer> [YYYY-MM-DD]", ErrUsage)
		}
		return e.commit(ctx, w, rest)
	case "tasks":
		return e.listTasks(w)
	case "help", "?":
		PrintHelp(w)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q (try help)", ErrUsage, cmd)
	}
}

func (e *Env) assign(w io.Writer, timerRef, taskRef string) error {
	id, err := e.Store.Resolve(timerRef)
	if err != nil {
		return err
	}
	if cat := e.tasks(); cat != nil {
		taskRef = cat.Match(taskRef)
	}
	if err := e.Store.Update(id, timer.Patch{TaskRef: &taskRef}); err != nil {
		return err
	}
	fmt.Fprintf(w, "Timer %s -> %s\n", shortID(id), e.describe(taskRef))
	return nil
}

func (e *Env) startStop(w io.Writer, cmd, ref string) error {
	id, err := e.Store.Resolve(ref)
	if err != nil {
		return err
	}
	t, _ := e.Store.Get(id)
	if (cmd == "start" && t.Running) || (cmd == "stop" && !t.Running) {
		fmt.Fprintf(w, "Timer %s already %s\n", shortID(id), state(t))
		return nil
	}
	if err := e.Store.StartStop(id); err != nil {
		return err
	}
	t, _ = e.Store.Get(id)
	fmt.Fprintf(w, "Timer %s %s at %s\n", shortID(id), state(t), util.FormatElapsed(t.ElapsedSeconds))
	return nil
}

func (e *Env) commit(ctx context.Context, w io.Writer, args []string) error {
	id, err := e.Store.Resolve(args[0])
	if err != nil {
		return err
	}
	date := e.Clock.Now()
	if len(args) == 2 {
		date, err = time.ParseInLocation("2006-01-02", args[1], time.Local)
		if err != nil {
			return fmt.Errorf("%w: bad date %q: %v", ErrUsage, args[1], err)
		}
	}
	if e.Reporter == nil {
		return errors.New("no reporter configured")
	}
	r, err := e.Reporter(ctx)
	if err != nil {
		return err
	}
	rep, err := e.Store.Commit(ctx, id, r, date)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Reported %s on %s for %s\n",
		util.FormatHours(rep.Length), rep.Date.Format("2006-01-02"), e.describe(rep.TaskID))
	return nil
}

func (e *Env) list(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tELAPSED\tBILLED\tTASK")
	for _, t := range e.Store.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), state(t), util.FormatElapsed(t.ElapsedSeconds),
			util.FormatHours(timer.Quantize(t.ElapsedSeconds)), e.describe(t.TaskRef))
	}
	return tw.Flush()
}

func (e *Env) listTasks(w io.Writer) error {
	cat := e.tasks()
	if cat == nil {
		return errors.New("task catalog unavailable")
	}
	tasks := make([]taskwarrior.Task, 0, len(cat))
	for _, t := range cat {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Urgency != tasks[j].Urgency {
			return tasks[i].Urgency > tasks[j].Urgency
		}
		return tasks[i].UUID < tasks[j].UUID
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tPROJECT\tDESCRIPTION")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", shortID(t.UUID), t.Project, t.Description)
	}
	return tw.Flush()
}

// Describe returns the catalog description of a task, or "" if unknown.
func (e *Env) Describe(taskRef string) string {
	if cat := e.tasks(); cat != nil {
		return cat.Describe(taskRef)
	}
	return ""
}

func (e *Env) describe(taskRef string) string {
	if taskRef == "" {
		return "-"
	}
	if d := e.Describe(taskRef); d != "" {
		return d
	}
	return taskRef
}

func state(t timer.TaskTimer) string {
	if t.Running {
		return "running"
	}
	return "stopped"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// PrintHelp lists the timer commands.
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, `Timer commands:
  list                      - Show all timers
  add                       - Add a blank timer
  assign <timer> <task>     - Set the task a timer bills to
  toggle <timer>            - Start or stop a timer (start/stop also work)
  delete <timer>            - Discard a stopped timer
  commit <timer> [date]     - Report a stopped timer and remove it
  tasks                     - List tasks from Taskwarrior
Timers and tasks can be given by id prefix.`)
}
