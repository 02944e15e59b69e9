package model

import "strings"

// FindingType represents how a finding hurts the page
type FindingType string

const (
	FindingBottleneck  FindingType = "bottleneck"  // Directly blocks a metric
	FindingWaste       FindingType = "waste"       // Bytes or work that could be removed
	FindingOpportunity FindingType = "opportunity" // Improvement with no direct blocking effect
)

// DefaultConfidence is used wherever a finding carries no usable evidence confidence
const DefaultConfidence = 0.7

// Evidence points at the data an agent based its finding on
type Evidence struct {
	Source     string  `json:"source" yaml:"source"`         // e.g., "lighthouse", "har", "crux"
	Reference  string  `json:"reference" yaml:"reference"`   // e.g., "https://example.com/static/hero.jpg"
	Confidence float64 `json:"confidence" yaml:"confidence"` // 0..1
}

// Impact is the agent's estimate of what fixing the finding would save
type Impact struct {
	Metric     string  `json:"metric" yaml:"metric"`
	Reduction  float64 `json:"reduction" yaml:"reduction"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Reasoning explains how the issue affects the metric
type Reasoning struct {
	Mechanism string `json:"mechanism" yaml:"mechanism"`
}

// Validation records that several agents reported the same issue
type Validation struct {
	CrossValidated bool     `json:"crossValidated" yaml:"crossValidated"`
	SourceCount    int      `json:"sourceCount" yaml:"sourceCount"`
	Sources        []string `json:"sources" yaml:"sources"`
}

// Finding is a single suspected performance issue reported by one agent
type Finding struct {
	ID              string      `json:"id" yaml:"id"`
	Type            FindingType `json:"type" yaml:"type"`
	Metric          string      `json:"metric" yaml:"metric"`
	Description     string      `json:"description" yaml:"description"`
	Evidence        *Evidence   `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	EstimatedImpact *Impact     `json:"estimatedImpact,omitempty" yaml:"estimatedImpact,omitempty"`
	Reasoning       *Reasoning  `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	RootCause       string      `json:"rootCause,omitempty" yaml:"rootCause,omitempty"` // Optional hint from the agent

	Agent      string      `json:"agent,omitempty" yaml:"agent,omitempty"`         // Producing agent name
	Resources  []string    `json:"resources,omitempty" yaml:"resources,omitempty"` // Attached resource URLs
	Validation *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Confidence returns the evidence confidence, or DefaultConfidence when missing
func (f *Finding) Confidence() float64 {
	if f.Evidence == nil || f.Evidence.Confidence <= 0 {
		return DefaultConfidence
	}
	return f.Evidence.Confidence
}

// Reference returns the evidence reference or an empty string
func (f *Finding) Reference() string {
	if f.Evidence == nil {
		return ""
	}
	return f.Evidence.Reference
}

// Reduction returns the estimated reduction or 0 when no impact was given
func (f *Finding) Reduction() float64 {
	if f.EstimatedImpact == nil {
		return 0
	}
	return f.EstimatedImpact.Reduction
}

// Mechanism returns the reasoning mechanism, falling back to the description
func (f *Finding) Mechanism() string {
	if f.Reasoning != nil && f.Reasoning.Mechanism != "" {
		return f.Reasoning.Mechanism
	}
	return f.Description
}

// MetricName returns the normalized (upper-case, trimmed) metric name
func (f *Finding) MetricName() string {
	return NormalizeMetric(f.Metric)
}

// Clone returns a deep copy so callers can modify it without touching the original
func (f Finding) Clone() Finding {
	if f.Evidence != nil {
		e := *f.Evidence
		f.Evidence = &e
	}
	if f.EstimatedImpact != nil {
		i := *f.EstimatedImpact
		f.EstimatedImpact = &i
	}
	if f.Reasoning != nil {
		r := *f.Reasoning
		f.Reasoning = &r
	}
	if f.Validation != nil {
		v := *f.Validation
		v.Sources = append([]string(nil), f.Validation.Sources...)
		f.Validation = &v
	}
	if f.Resources != nil {
		f.Resources = append([]string(nil), f.Resources...)
	}
	return f
}

// NormalizeMetric upper-cases and trims a metric name
func NormalizeMetric(metric string) string {
	return strings.ToUpper(strings.TrimSpace(metric))
}
