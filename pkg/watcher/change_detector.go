package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ChangeAnalysis describes what changed and why a new run is needed
type ChangeAnalysis struct {
	FindingsChanged bool
	MetricsChanged  bool
	ChangedFiles    []string
}

// AnalyzeChanges folds a debounced batch into one ChangeAnalysis
func AnalyzeChanges(events ...ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}
	seen := make(map[string]bool)

	for _, event := range events {
		switch event.Type {
		case ChangeTypeFindings:
			analysis.FindingsChanged = true
		case ChangeTypeMetrics:
			analysis.MetricsChanged = true
		}
		for _, p := range event.Paths {
			if !seen[p] {
				seen[p] = true
				analysis.ChangedFiles = append(analysis.ChangedFiles, p)
			}
		}
	}

	sort.Strings(analysis.ChangedFiles)
	return analysis
}

// NeedsRun reports whether anything relevant changed
func (a *ChangeAnalysis) NeedsRun() bool {
	return a.FindingsChanged || a.MetricsChanged
}

// Reason renders a short run reason for logs
func (a *ChangeAnalysis) Reason() string {
	var what string
	switch {
	case a.FindingsChanged && a.MetricsChanged:
		what = "findings and metrics changed"
	case a.MetricsChanged:
		what = "metrics changed"
	case a.FindingsChanged:
		what = "findings changed"
	default:
		return "no relevant changes"
	}

	switch len(a.ChangedFiles) {
	case 0:
		return what
	case 1:
		return fmt.Sprintf("%s (%s)", what, filepath.Base(a.ChangedFiles[0]))
	default:
		return fmt.Sprintf("%s (%d files)", what, len(a.ChangedFiles))
	}
}
