// Package backup writes timestamped copies of the event list on a cron
// schedule and prunes old copies.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/storage"
)

const (
	filePrefix = "events-"
	fileSuffix = ".json"
	timeLayout = "20060102-150405"
)

// SnapshotFunc returns the current event list. It is called from the cron
// goroutine, so it must do its own synchronisation with the store owner.
type SnapshotFunc func() model.Snapshot

type Runner struct {
	snapshot SnapshotFunc
	dir      string
	keep     int
	now      func() time.Time

	cron *cron.Cron
}

func New(snapshot SnapshotFunc, dir string, keep int) *Runner {
	if keep <= 0 {
		keep = 1
	}
	return &Runner{
		snapshot: snapshot,
		dir:      dir,
		keep:     keep,
		now:      time.Now,
	}
}

// Start schedules RunOnce according to expr (standard 5-field cron syntax).
func (r *Runner) Start(expr string) error {
	if r.cron != nil {
		return errors.New("backup: already started")
	}
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if _, err := r.RunOnce(); err != nil {
			appLog.Error("backup failed", err, "dir", r.dir)
		}
	})
	if err != nil {
		return fmt.Errorf("backup: invalid cron expression %q: %w", expr, err)
	}
	c.Start()
	r.cron = c
	appLog.Info("backup scheduled", "cron", expr, "dir", r.dir, "keep", r.keep)
	return nil
}

// Stop stops the schedule and waits for a running backup to finish.
func (r *Runner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}

// RunOnce writes one backup file and prunes old ones. It returns the path
// of the new file.
func (r *Runner) RunOnce() (string, error) {
	data, err := json.MarshalIndent(r.snapshot(), "", "  ")
	if err != nil {
		return "", err
	}

	name := filePrefix + r.now().Format(timeLayout) + fileSuffix
	path := filepath.Join(r.dir, name)
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return "", err
	}

	removed, err := r.prune()
	if err != nil {
		return path, err
	}
	appLog.Info("backup written", "path", path, "pruned", removed)
	return path, nil
}

// prune deletes all but the newest r.keep backups. The timestamp layout
// sorts lexically, so name order is age order.
func (r *Runner) prune() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, err
	}

	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, filePrefix) && strings.HasSuffix(n, fileSuffix) {
			names = append(names, n)
		}
	}
	if len(names) <= r.keep {
		return 0, nil
	}

	slices.Sort(names)
	stale := names[:len(names)-r.keep]
	for _, n := range stale {
		if err := os.Remove(filepath.Join(r.dir, n)); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
