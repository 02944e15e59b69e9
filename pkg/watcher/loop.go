package watcher

import (
	"context"
	"time"

	"github.com/ritzau/vitals-analyzer/pkg/logging"
)

const (
	DefaultQuietPeriod = 500 * time.Millisecond
	DefaultMaxWait     = 5 * time.Second
)

// Watch blocks until ctx is cancelled, calling onChange once per debounced
// batch of relevant changes under findingsPath or to metricsPath
func Watch(ctx context.Context, findingsPath, metricsPath string, onChange func(context.Context, *ChangeAnalysis)) error {
	fw, err := NewFileWatcher(findingsPath, metricsPath)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}

	debouncer := NewDebouncer(fw.Events(), DefaultQuietPeriod, DefaultMaxWait)
	debouncer.Start(ctx)

	return drain(ctx, debouncer.Output(), onChange)
}

// drain merges events that arrive back to back so a batch spanning both
// change types triggers one run
func drain(ctx context.Context, events <-chan ChangeEvent, onChange func(context.Context, *ChangeAnalysis)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case first, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			batch := []ChangeEvent{first}
		more:
			for {
				select {
				case next, ok := <-events:
					if !ok {
						break more
					}
					batch = append(batch, next)
				default:
					break more
				}
			}

			analysis := AnalyzeChanges(batch...)
			if !analysis.NeedsRun() {
				continue
			}
			logging.Info("[WATCHER] change detected", "reason", analysis.Reason(), "files", len(analysis.ChangedFiles))
			onChange(ctx, analysis)
		}
	}
}
