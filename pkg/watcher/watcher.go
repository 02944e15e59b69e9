package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/vitals-analyzer/pkg/logging"
)

// ChangeType represents the kind of input that changed
type ChangeType int

const (
	ChangeTypeFindings ChangeType = iota
	ChangeTypeMetrics
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeFindings:
		return "findings"
	case ChangeTypeMetrics:
		return "metrics"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups raw fsnotify events before they reach the debouncer
const batchWindow = 100 * time.Millisecond

// FileWatcher watches the findings location and the metrics file
type FileWatcher struct {
	watcher      *fsnotify.Watcher
	findingsPath string
	metricsPath  string
	events       chan ChangeEvent
	closeOnce    sync.Once
}

// NewFileWatcher creates a watcher for a findings file or directory and an
// optional metrics file
func NewFileWatcher(findingsPath, metricsPath string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:      watcher,
		findingsPath: cleanAbs(findingsPath),
		metricsPath:  cleanAbs(metricsPath),
		events:       make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	if err := fw.watchFindings(); err != nil {
		return err
	}

	if fw.metricsPath != "" {
		// Watch the parent so editors that replace the file are still seen
		dir := filepath.Dir(fw.metricsPath)
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch metrics directory", "path", dir, "error", err)
		}
	}

	logging.Info("[WATCHER] started", "findings", fw.findingsPath, "metrics", fw.metricsPath)

	go fw.processEvents(ctx)
	return nil
}

// watchFindings adds the findings directory and every non-hidden subdirectory
func (fw *FileWatcher) watchFindings() error {
	info, err := os.Stat(fw.findingsPath)
	if err != nil {
		return fmt.Errorf("failed to stat findings path: %w", err)
	}
	if !info.IsDir() {
		return fw.watcher.Add(filepath.Dir(fw.findingsPath))
	}

	dirs := 0
	err = filepath.WalkDir(fw.findingsPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != fw.findingsPath && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		dirs++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk findings directory: %w", err)
	}

	logging.Info("monitoring directories for findings", "count", dirs)
	return nil
}

// classify maps a raw event path to a change type
func (fw *FileWatcher) classify(path string) (ChangeType, bool) {
	path = cleanAbs(path)
	if fw.metricsPath != "" && path == fw.metricsPath {
		return ChangeTypeMetrics, true
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return 0, false
	}

	if path == fw.findingsPath || strings.HasPrefix(path, fw.findingsPath+string(filepath.Separator)) {
		return ChangeTypeFindings, true
	}
	return 0, false
}

// processEvents batches file system events by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeMetrics, ChangeTypeFindings} {
			if paths := pending[t]; len(paths) > 0 {
				fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	defer fw.closeEvents()

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				fw.addIfDir(event.Name)
			}

			t, relevant := fw.classify(event.Name)
			if !relevant {
				continue
			}
			logging.Trace("file event", "path", event.Name, "op", event.Op.String(), "type", t.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// addIfDir starts watching directories created inside the findings tree
func (fw *FileWatcher) addIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	if !strings.HasPrefix(cleanAbs(path), fw.findingsPath) {
		return
	}
	if err := fw.watcher.Add(path); err != nil {
		logging.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

func (fw *FileWatcher) closeEvents() {
	fw.closeOnce.Do(func() { close(fw.events) })
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher. The events channel is closed once the
// processing goroutine notices.
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}

func cleanAbs(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
