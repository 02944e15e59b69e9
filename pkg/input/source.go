package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ritzau/vitals-analyzer/pkg/logging"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

// ErrNoFindings is returned when a source produced no usable findings file
var ErrNoFindings = errors.New("no findings could be loaded")

// Bundle is everything one analysis run needs
type Bundle struct {
	Findings []model.Finding    `json:"findings"`
	Metrics  map[string]float64 `json:"metrics"`
}

// Source provides the findings and metric values for an analysis run.
// Implementations encapsulate where the data comes from (files, HTTP bodies, ...).
type Source interface {
	// Name returns a short description of the source (e.g., "files:agents/").
	Name() string

	// Load gathers the findings and metric values.
	// It should respect the context for cancellation.
	Load(ctx context.Context) (*Bundle, error)
}

// FileSource loads findings from agent output files and metrics from one file
type FileSource struct {
	FindingsPath string // File or directory of agent outputs
	MetricsPath  string // Optional metrics file
}

// NewFileSource creates a file-backed source
func NewFileSource(findingsPath, metricsPath string) *FileSource {
	return &FileSource{FindingsPath: findingsPath, MetricsPath: metricsPath}
}

func (s *FileSource) Name() string {
	return "files:" + s.FindingsPath
}

func (s *FileSource) Load(ctx context.Context) (*Bundle, error) {
	logger := logging.New("input.files")

	files, err := FindFindingFiles(s.FindingsPath)
	if err != nil {
		return nil, fmt.Errorf("finding agent outputs in %s: %w", s.FindingsPath, err)
	}

	bundle := &Bundle{Metrics: make(map[string]float64)}
	loaded := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// metrics may live next to the agent outputs
		if s.MetricsPath != "" && samePath(path, s.MetricsPath) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable agent output", "path", path, "error", err)
			continue
		}
		findings, err := ParseFindings(data, FormatOf(path), AgentName(path))
		if err != nil {
			logger.Warn("skipping malformed agent output", "path", path, "error", err)
			continue
		}

		logger.Debug("loaded agent output", "path", path, "findings", len(findings))
		bundle.Findings = append(bundle.Findings, findings...)
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("%w from %s", ErrNoFindings, s.FindingsPath)
	}

	if s.MetricsPath != "" {
		data, err := os.ReadFile(s.MetricsPath)
		if err != nil {
			return nil, fmt.Errorf("reading metrics: %w", err)
		}
		bundle.Metrics, err = ParseMetrics(data, FormatOf(s.MetricsPath))
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no metrics file configured, graph will have no metric nodes")
	}

	logger.Info("input loaded", "files", loaded, "findings", len(bundle.Findings), "metrics", len(bundle.Metrics))
	return bundle, nil
}

// StaticSource serves a bundle that is already in memory
type StaticSource struct {
	Label  string
	Bundle Bundle
}

func (s *StaticSource) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

func (s *StaticSource) Load(ctx context.Context) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.Bundle
	if b.Metrics == nil {
		b.Metrics = make(map[string]float64)
	}
	return &b, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
