package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"monthcal/internal/backup"
	"monthcal/internal/config"
	"monthcal/internal/grid"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/schedule"
	"monthcal/internal/storage"
	"monthcal/internal/web"
)

var serveCmd = cli.Command{
	Name:  "serve",
	Usage: "Serve the calendar API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "Override the listen address from the config",
		},
	},
	Action: serve,
}

var monthCmd = cli.Command{
	Name:      "month",
	Usage:     "Print the month grid with event counts",
	ArgsUsage: "[YYYY-MM]",
	Action:    printMonth,
}

var exportCmd = cli.Command{
	Name:  "export",
	Usage: "Write all events as iCalendar",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "o",
			Usage: "Output file (default: stdout)",
		},
	},
	Action: exportICS,
}

var importCmd = cli.Command{
	Name:      "import",
	Usage:     "Add the events of an iCalendar file or URL",
	ArgsUsage: "<file|url>",
	Action:    importICS,
}

// env is the state shared by every command: the loaded config, the
// persisted snapshot and a store restored from it.
type env struct {
	cfg     *config.Config
	persist storage.Store
	store   *schedule.Store
}

func setup(c *cli.Context) (*env, error) {
	path := c.GlobalString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	appLog.SetLevel(effectiveLevel(cfg.LogLevel, c.GlobalString("log-level"), c.GlobalBool("debug")))

	persist, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := schedule.New(
		schedule.WithHorizon(cfg.Schedule.HorizonMonths),
		schedule.WithMaxOccurrences(cfg.Schedule.MaxOccurrences),
		schedule.WithRecheckConflicts(cfg.Schedule.RecheckConflicts),
		schedule.WithOccurrenceConflicts(cfg.Schedule.CheckOccurrences),
		schedule.WithDisallowPast(cfg.Schedule.DisallowPast),
		schedule.WithDefaultColor(cfg.Schedule.DefaultColor),
	)

	snap, err := persist.Load(context.Background())
	if err != nil {
		_ = persist.Close()
		return nil, fmt.Errorf("load events: %w", err)
	}
	if err := store.Restore(snap); err != nil {
		_ = persist.Close()
		return nil, fmt.Errorf("restore events: %w", err)
	}

	appLog.Debug("events loaded",
		"driver", cfg.Storage.Driver,
		"path", cfg.Storage.Path,
		"events", store.Len(),
	)
	return &env{cfg: cfg, persist: persist, store: store}, nil
}

// effectiveLevel resolves the log level: --debug wins over --log-level,
// which wins over the config file.
func effectiveLevel(configured, flag string, debug bool) appLog.Level {
	switch {
	case debug:
		return appLog.LevelDebug
	case flag != "":
		return appLog.ParseLevel(flag)
	default:
		return appLog.ParseLevel(configured)
	}
}

func (e *env) close() {
	if err := e.persist.Close(); err != nil {
		appLog.Error("failed to close storage", err)
	}
}

func serve(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	if l := c.String("listen"); l != "" {
		e.cfg.Listen = l
	}

	appLog.Info("effective config",
		"listen", e.cfg.Listen,
		"storage_driver", e.cfg.Storage.Driver,
		"storage_path", e.cfg.Storage.Path,
		"horizon_months", e.cfg.Schedule.HorizonMonths,
		"max_occurrences", e.cfg.Schedule.MaxOccurrences,
		"recheck_conflicts", e.cfg.Schedule.RecheckConflicts,
		"backup_cron", e.cfg.Backup.Cron,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(e.cfg, e.store, e.persist)

	if e.cfg.Backup.Cron != "" {
		runner := backup.New(srv.Snapshot, e.cfg.Backup.Dir, e.cfg.Backup.Keep)
		if err := runner.Start(e.cfg.Backup.Cron); err != nil {
			return fmt.Errorf("start backups: %w", err)
		}
		defer runner.Stop()
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	appLog.Info("monthcal exiting")
	return nil
}

func printMonth(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	ref := time.Now()
	if arg := c.Args().First(); arg != "" {
		ref, err = time.ParseInLocation("2006-01", arg, time.Local)
		if err != nil {
			return fmt.Errorf("invalid month %q, expected YYYY-MM", arg)
		}
	}

	renderMonth(os.Stdout, e.store, ref)
	return nil
}

// renderMonth prints a text grid: one column per weekday, each cell the
// day of month and the number of events starting that day. Days outside
// the month are bracketed, today is starred.
func renderMonth(w io.Writer, store *schedule.Store, ref time.Time) {
	fmt.Fprintf(w, "%s\n", grid.MonthLabel(ref))
	for _, label := range grid.WeekdayLabels() {
		fmt.Fprintf(w, "%-8s", label)
	}
	fmt.Fprintln(w)

	for i, day := range grid.DaysForMonthView(ref) {
		cell := fmt.Sprintf("%d", day.Day())
		if n := len(store.EventsOn(day)); n > 0 {
			cell += fmt.Sprintf("(%d)", n)
		}
		if !grid.SameMonth(day, ref) {
			cell = "[" + cell + "]"
		}
		if grid.IsToday(day) {
			cell += "*"
		}
		fmt.Fprintf(w, "%-8s", cell)
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}
}

func exportICS(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	out := c.String("o")
	if out == "" {
		return ics.Export(os.Stdout, e.store.Events(), time.Now())
	}

	var buf strings.Builder
	if err := ics.Export(&buf, e.store.Events(), time.Now()); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(out, []byte(buf.String())); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	appLog.Info("calendar exported", "path", out, "events", e.store.Len())
	return nil
}

func importICS(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		return fmt.Errorf("import: missing <file|url> argument")
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := ics.NewFetcher().Fetch(ctx, source)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", source, err)
	}
	inputs, err := ics.Parse(body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}

	added := 0
	for _, in := range inputs {
		if _, err := e.store.AddEvent(in); err != nil {
			appLog.Warn("skipping event", "title", in.Title, "err", err)
			continue
		}
		added++
	}

	if err := e.persist.Save(ctx, e.store.Snapshot()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	appLog.Info("calendar imported",
		"parsed", len(inputs),
		"added", added,
		"events", e.store.Len(),
		"conflicts", len(e.store.Conflicts()),
	)
	return nil
}
