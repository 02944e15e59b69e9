package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/vitals-analyzer/pkg/pipeline"
)

// PrintReport prints a colorized summary of an analysis run
func PrintReport(w io.Writer, res *pipeline.Result) {
	g := res.Graph
	stats := g.Stats()

	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Core Web Vitals Analyzer - Correlation Report")
	bold.Fprintln(w, "==============================================")
	fmt.Fprintf(w, "Run: %s\n", res.RunID)
	fmt.Fprintf(w, "Findings: %d reported, %d unique\n", res.InputFindings, stats.Findings)
	fmt.Fprintf(w, "Relationships: %d\n", stats.Edges)
	fmt.Fprintln(w)

	// Metrics with colors
	for _, n := range g.MetricNodes() {
		m := n.Metric
		if m.OverThreshold {
			red.Fprintf(w, "  %-5s %g%s (threshold %g%s)\n", m.Metric, m.Value, m.Unit, m.Threshold, m.Unit)
		} else {
			green.Fprintf(w, "  %-5s %g%s\n", m.Metric, m.Value, m.Unit)
		}
	}
	fmt.Fprintln(w)

	// Root causes
	if len(g.RootCauses) == 0 {
		yellow.Fprintln(w, "No root causes identified.")
	} else {
		red.Fprintln(w, "ROOT CAUSES:")
		for _, id := range g.RootCauses {
			n := g.Nodes[id]
			yellow.Fprintf(w, "  %s\n", id)
			cyan.Fprintf(w, "    %s · %s\n", n.IssueType, n.Finding.MetricName())
			fmt.Fprintf(w, "    %s\n", n.Description)
			fmt.Fprintln(w)
		}
	}

	// Critical paths
	bold.Fprintln(w, "CRITICAL PATHS:")
	for _, cp := range g.CriticalPaths {
		if len(cp.Path) == 0 {
			yellow.Fprintf(w, "  %-5s %s\n", cp.Metric, InsufficientEvidence)
			continue
		}
		fmt.Fprintf(w, "  %-5s %s ", cp.Metric, strings.Join(cp.Path, " → "))
		cyan.Fprintf(w, "(%.2f)\n", cp.Strength)
	}

	// Summary with color based on how much is explained
	summaryColor := green
	if stats.UnexplainedPaths > 0 {
		summaryColor = yellow
	}
	if stats.ExplainedPaths == 0 && stats.Metrics > 0 {
		summaryColor = red
	}
	fmt.Fprintln(w)
	summaryColor.Fprintf(w, "Summary: %d of %d metrics explained by %d root cause(s)\n",
		stats.ExplainedPaths, stats.Metrics, stats.RootCauses)
}
