package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/harrisonrobin/tally/pkg/auth"
	"github.com/harrisonrobin/tally/pkg/clock"
	"github.com/harrisonrobin/tally/pkg/colors"
	"github.com/harrisonrobin/tally/pkg/config"
	"github.com/harrisonrobin/tally/pkg/google"
	"github.com/harrisonrobin/tally/pkg/index"
	"github.com/harrisonrobin/tally/pkg/logger"
	"github.com/harrisonrobin/tally/pkg/orgmode"
	"github.com/harrisonrobin/tally/pkg/report"
	"github.com/harrisonrobin/tally/pkg/scheduler"
	"github.com/harrisonrobin/tally/pkg/shell"
	"github.com/harrisonrobin/tally/pkg/storage"
	"github.com/harrisonrobin/tally/pkg/taskwarrior"
	"github.com/harrisonrobin/tally/pkg/timer"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default ~/.config/tally/config.yaml)")
	calendarName := flag.String("calendar", "", "Google Calendar to report to (overrides config)")
	setCalendar := flag.String("set-calendar", "", "Set the default Google Calendar name")
	journal := flag.Bool("journal", false, "Report to the local journal instead of Google Calendar")
	doAuth := flag.Bool("auth", false, "Authenticate with Google Calendar")
	quiet := flag.Bool("quiet", false, "Only log errors")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(err, "could not load config")
		os.Exit(1)
	}
	logger.SetQuiet(cfg.Quiet || *quiet)

	if *setCalendar != "" {
		cfg.Calendar = *setCalendar
		if err := config.Save(*configPath, cfg); err != nil {
			logger.Error(err, "could not save config")
			os.Exit(1)
		}
		fmt.Printf("Default calendar set to: %s\n", *setCalendar)
		return
	}
	if *calendarName != "" {
		cfg.Calendar = *calendarName
	}
	if *journal {
		cfg.Reporter = config.ReporterJournal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *doAuth {
		if err := authenticate(ctx); err != nil {
			logger.Error(err, "authentication failed")
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, flag.Args()); err != nil {
		if errors.Is(err, shell.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Error(err, "tally failed")
		os.Exit(1)
	}
}

func usage() {
	printUsage(os.Stderr)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: tally [flags] <command> [args]\n\n")
	shell.PrintHelp(w)
	fmt.Fprintf(w, "  run                       - Keep ticking in the foreground. Its next tick\n")
	fmt.Fprintf(w, "                              overwrites changes made from another terminal;\n")
	fmt.Fprintf(w, "                              use shell to change timers while ticking\n")
	fmt.Fprintf(w, "  shell                     - Interactive prompt with ticking\n\nFlags:\n")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}

func authenticate(ctx context.Context) error {
	dir, err := config.GetXdgHome()
	if err != nil {
		return err
	}
	if err := auth.ResetToken(dir); err != nil {
		return err
	}
	if _, err := google.NewService(ctx, dir); err != nil {
		return err
	}
	logger.Info("authentication successful", "token", filepath.Join(dir, auth.TokenFile))
	return nil
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	clk := clock.Real()
	store, err := timer.Open(clk, storage.NewFileStore(cfg.StateDir))
	if err != nil {
		return err
	}

	tw := taskwarrior.NewClient()
	env := &shell.Env{
		Store: store,
		Clock: clk,
		Catalog: func() (taskwarrior.Catalog, error) {
			return loadCatalog(tw, cfg)
		},
	}
	env.Reporter = func(ctx context.Context) (report.Reporter, error) {
		return newReporter(ctx, cfg, env)
	}

	sched := scheduler.New(clk, cfg.TickInterval, store.Tick)

	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "run":
		logger.Info("ticking timers, press Ctrl-C to stop; changes from other terminals will be overwritten", "state", cfg.StateDir)
		if err := sched.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case "shell":
		sh, err := shell.New(env, sched)
		if err != nil {
			return err
		}
		logger.SetOutput(sh.Stdout())
		defer logger.SetOutput(os.Stderr)
		return sh.Run(ctx)
	default:
		return env.Exec(ctx, os.Stdout, args)
	}
}

// loadCatalog merges Taskwarrior tasks with the ID'd headings of the
// configured org files. Either source may be missing.
func loadCatalog(tw *taskwarrior.Client, cfg *config.Config) (taskwarrior.Catalog, error) {
	cat, err := tw.Catalog(cfg.TaskFilter)
	if err != nil {
		if len(cfg.OrgFiles) == 0 {
			return nil, err
		}
		logger.Warn("taskwarrior unavailable, using org files only", "error", err.Error())
		cat = taskwarrior.Catalog{}
	}
	if len(cfg.OrgFiles) == 0 {
		return cat, nil
	}

	headings, err := orgmode.ParseFiles(cfg.OrgFiles)
	if err != nil {
		return nil, err
	}
	if cfg.OrgTag != "" {
		headings = orgmode.FilterTag(headings, cfg.OrgTag)
	}
	for _, h := range headings {
		if h.Status != taskwarrior.PENDING {
			continue
		}
		cat[h.ID] = taskwarrior.Task{
			UUID:        h.ID,
			Description: h.Title,
			Status:      h.Status,
			Project:     strings.TrimSuffix(filepath.Base(h.Source), filepath.Ext(h.Source)),
			Tags:        h.Tags,
		}
	}
	return cat, nil
}

func newReporter(ctx context.Context, cfg *config.Config, env *shell.Env) (report.Reporter, error) {
	if cfg.Reporter != config.ReporterCalendar {
		return report.NewJournal(filepath.Join(cfg.StateDir, "reports.jsonl")), nil
	}

	dir, err := config.GetXdgHome()
	if err != nil {
		return nil, err
	}
	idx, err := index.NewEventIndex(filepath.Join(cfg.StateDir, "events.json"))
	if err != nil {
		logger.Warn("could not load event index", "error", err.Error())
		idx = nil
	}
	cc, err := colors.NewColorCache(filepath.Join(cfg.StateDir, "task_colors.json"))
	if err != nil {
		logger.Warn("could not load color cache", "error", err.Error())
		cc = nil
	}

	client, err := google.NewClient(ctx, dir, cfg.Calendar, google.Options{
		Index:     idx,
		Colors:    cc,
		Describer: env,
		StartHour: cfg.DayStartHour,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
