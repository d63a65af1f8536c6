package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/sync/errgroup"

	"github.com/harrisonrobin/tally/pkg/logger"
	"github.com/harrisonrobin/tally/pkg/scheduler"
)

// Shell is the interactive prompt. The tick loop keeps running while the user
// types.
type Shell struct {
	env   *Env
	sched *scheduler.Scheduler
	rl    *readline.Instance
}

func New(env *Env, sched *scheduler.Scheduler) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tally> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{env: env, sched: sched, rl: rl}, nil
}

// Stdout coordinates writes with the prompt; point the logger here.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run serves the prompt until the user quits or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error {
		if err := s.sched.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Readline blocks; closing it is the only way to interrupt.
		<-ctx.Done()
		return s.rl.Close()
	})
	g.Go(func() error {
		defer cancel()
		s.loop(ctx)
		return nil
	})
	return g.Wait()
}

func (s *Shell) loop(ctx context.Context) {
	out := s.rl.Stdout()
	PrintHelp(out)
	fmt.Fprintln(out, "  quit                      - Leave the shell (timers keep their state)")

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}
		if done := s.handle(ctx, out, line); done {
			return
		}
	}
}

// handle runs one prompt line and reports whether the shell should exit.
func (s *Shell) handle(ctx context.Context, out io.Writer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Exiting...")
		return true
	}
	if err := s.env.Exec(ctx, out, fields); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(out, err)
		} else {
			logger.Error(err, "command failed", "command", fields[0])
		}
	}
	return false
}
