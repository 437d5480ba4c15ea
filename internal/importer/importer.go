// Package importer watches a drop directory and imports task files
// into the board inbox. A task file is a JSON array of tasks; every
// successfully imported file is removed from the directory.
package importer

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/models"
)

// TaskSink receives imported task batches. *boardservice.Service
// satisfies it.
type TaskSink interface {
	ImportTasks(ts []models.Task) (int, error)
}

// settleDelay is how long a file must be quiet before we read it, so a
// file still being written is not consumed half way.
const settleDelay = 200 * time.Millisecond

// taskFile is the on-disk shape of a drop file entry. Only a subset of
// the task fields can be supplied from outside.
type taskFile struct {
	Title     string         `json:"title"`
	Priority  string         `json:"priority,omitempty"`
	Status    string         `json:"status,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
	DueDate   string         `json:"due_date,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Run starts an fsnotify watcher on dir and imports dropped .json files
// until ctx is cancelled. Files already present at startup are imported
// immediately.
func Run(ctx context.Context, sink TaskSink, dir string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("importer: started", slog.String("dir", dir))

	// Pick up anything dropped before we started watching.
	importExisting(sink, dir, logger)

	// pending holds paths whose events arrived but have not settled yet.
	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("importer: stopped")
			return nil

		case <-settleCh:
			for path := range pending {
				delete(pending, path)
				importFile(sink, path, logger)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importer: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// importExisting imports every .json file already sitting in dir.
func importExisting(sink TaskSink, dir string, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("importer: read dir failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		importFile(sink, filepath.Join(dir, e.Name()), logger)
	}
}

// importFile reads, parses, and imports one drop file, removing it on
// success. A malformed file is left in place so it can be fixed.
func importFile(sink TaskSink, path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		logger.Warn("importer: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	tasks, err := ParseTaskFile(data)
	if err != nil {
		logger.Warn("importer: parse failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if len(tasks) == 0 {
		logger.Debug("importer: no tasks in file", slog.String("path", path))
		_ = os.Remove(path)
		return
	}

	n, err := sink.ImportTasks(tasks)
	if err != nil {
		logger.Warn("importer: import failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("importer: remove failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	logger.Info("importer: imported", slog.String("path", path), slog.Int("tasks", n))
}

// ParseTaskFile decodes a drop file into inbox tasks. Entries without
// a title are skipped; the tasks never carry a canvas position.
func ParseTaskFile(data []byte) ([]models.Task, error) {
	var entries []taskFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		t := models.Task{
			Title:     strings.TrimSpace(e.Title),
			Priority:  e.Priority,
			Status:    e.Status,
			ProjectID: e.ProjectID,
			Meta:      e.Meta,
		}
		if e.DueDate != "" {
			due, err := time.Parse(models.TimelineDayFormat, e.DueDate)
			if err != nil {
				return nil, err
			}
			t.DueDate = &due
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
