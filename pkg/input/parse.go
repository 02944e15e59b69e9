package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ritzau/vitals-analyzer/pkg/model"
	"gopkg.in/yaml.v3"
)

// AgentReport is the envelope an agent may wrap its findings in
type AgentReport struct {
	Agent    string          `json:"agent" yaml:"agent"`
	Findings []model.Finding `json:"findings" yaml:"findings"`
}

// ParseFindings decodes one agent output. The document is either a list of
// findings or an AgentReport. Findings without an agent name get
// defaultAgent, or the envelope's agent when present.
func ParseFindings(data []byte, format, defaultAgent string) ([]model.Finding, error) {
	var report AgentReport

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var err error
	if format == "yaml" {
		err = decodeYAMLFindings(data, &report)
	} else {
		err = decodeJSONFindings(data, &report)
	}
	if err != nil {
		return nil, err
	}

	agent := defaultAgent
	if report.Agent != "" {
		agent = report.Agent
	}
	for i := range report.Findings {
		if report.Findings[i].Agent == "" {
			report.Findings[i].Agent = agent
		}
	}
	return report.Findings, nil
}

// ParseMetrics decodes a metric name -> value map. Metric names are normalized.
func ParseMetrics(data []byte, format string) (map[string]float64, error) {
	raw := make(map[string]float64)
	if err := decode(bytes.TrimSpace(data), format, &raw); err != nil {
		return nil, fmt.Errorf("decoding metrics: %w", err)
	}

	metrics, _ := model.NormalizeMetrics(raw)
	return metrics, nil
}

// FormatOf returns "json" or "yaml" for a file path
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func decode(data []byte, format string, v any) error {
	if format == "yaml" {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// decodeYAMLFindings branches on the document's root node, so comments,
// directives and flow sequences ahead of the findings are handled by the parser
func decodeYAMLFindings(data []byte, report *AgentReport) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding findings: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&report.Findings); err != nil {
			return fmt.Errorf("decoding findings list: %w", err)
		}
	case yaml.MappingNode:
		if err := root.Decode(report); err != nil {
			return fmt.Errorf("decoding agent report: %w", err)
		}
	case 0:
		// comments only
	case yaml.ScalarNode:
		if root.Tag != "!!null" {
			return fmt.Errorf("decoding findings: line %d: expected a list or a mapping", root.Line)
		}
	default:
		return fmt.Errorf("decoding findings: line %d: expected a list or a mapping", root.Line)
	}
	return nil
}

// decodeJSONFindings looks at the first token to tell a list from an envelope
func decodeJSONFindings(data []byte, report *AgentReport) error {
	tok, err := json.NewDecoder(bytes.NewReader(data)).Token()
	if err != nil {
		return fmt.Errorf("decoding findings: %w", err)
	}

	if delim, ok := tok.(json.Delim); ok && delim == '[' {
		if err := json.Unmarshal(data, &report.Findings); err != nil {
			return fmt.Errorf("decoding findings list: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, report); err != nil {
		return fmt.Errorf("decoding agent report: %w", err)
	}
	return nil
}
