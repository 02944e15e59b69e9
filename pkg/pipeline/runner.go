package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ritzau/vitals-analyzer/pkg/dedup"
	"github.com/ritzau/vitals-analyzer/pkg/graph"
	"github.com/ritzau/vitals-analyzer/pkg/input"
	"github.com/ritzau/vitals-analyzer/pkg/logging"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

// Options configures which steps of an analysis run are executed
type Options struct {
	SkipDedup         bool
	MaxPathExpansions int
	Reason            string // e.g., "initial analysis", "findings changed"
}

// Result is everything one analysis run produced
type Result struct {
	RunID         string        `json:"runId"`
	Source        string        `json:"source"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
	InputFindings int           `json:"inputFindings"`
	Dedup         *dedup.Result `json:"dedup"`
	Graph         *model.Graph  `json:"graph"`
}

// Correlate runs deduplication, graph construction and analysis over an
// in-memory bundle. Every call works on fresh data, so concurrent calls for
// different runs are safe.
func Correlate(ctx context.Context, bundle *input.Bundle, opts Options) (*Result, error) {
	runID := logging.GetRunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}

	result := &Result{
		RunID:         runID,
		StartedAt:     time.Now(),
		InputFindings: len(bundle.Findings),
	}

	// Phase 1: Deduplication
	findings := bundle.Findings
	if opts.SkipDedup {
		result.Dedup = &dedup.Result{Findings: findings, MergeGroups: make([]dedup.MergeGroup, 0)}
	} else {
		result.Dedup = dedup.Deduplicate(findings)
		logging.InfoContext(ctx, "[1/2] deduplicated findings",
			"input", len(findings),
			"unique", len(result.Dedup.Findings),
			"merged", result.Dedup.MergedCount,
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 2: Graph construction and analysis
	var buildOpts []graph.Option
	if opts.MaxPathExpansions > 0 {
		buildOpts = append(buildOpts, graph.WithMaxPathExpansions(opts.MaxPathExpansions))
	}
	g, err := graph.Build(result.Dedup.Findings, bundle.Metrics, buildOpts...)
	if err != nil {
		logging.ErrorContext(ctx, "[2/2] graph construction failed", "error", err)
		return nil, fmt.Errorf("building correlation graph: %w", err)
	}
	result.Graph = g

	stats := g.Stats()
	logging.InfoContext(ctx, "[2/2] correlation graph ready",
		"findings", stats.Findings,
		"metrics", stats.Metrics,
		"edges", stats.Edges,
		"rootCauses", stats.RootCauses,
		"symptoms", stats.Symptoms,
	)

	result.Duration = time.Since(result.StartedAt)
	return result, nil
}

// Runner loads input from a source and correlates it
type Runner struct {
	source input.Source
	opts   Options
	mu     sync.Mutex // Prevent overlapping runs from the same runner
}

// NewRunner creates a new runner
func NewRunner(source input.Source, opts Options) *Runner {
	return &Runner{source: source, opts: opts}
}

// Run executes one analysis run. reason overrides Options.Reason when non-empty.
func (r *Runner) Run(ctx context.Context, reason string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reason == "" {
		reason = r.opts.Reason
	}
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	logging.InfoContext(ctx, "[ANALYSIS] starting", "reason", reason, "source", r.source.Name())

	bundle, err := r.source.Load(ctx)
	if err != nil {
		logging.ErrorContext(ctx, "[ANALYSIS] could not load input", "error", err)
		return nil, fmt.Errorf("loading input from %s: %w", r.source.Name(), err)
	}

	result, err := Correlate(ctx, bundle, r.opts)
	if err != nil {
		return nil, err
	}
	result.Source = r.source.Name()

	logging.InfoContext(ctx, "[ANALYSIS] complete", "reason", reason, "durationMs", result.Duration.Milliseconds())
	return result, nil
}
