package model

import "sort"

// MetricThreshold is the good/poor boundary for one tracked metric
type MetricThreshold struct {
	Metric    string
	Threshold float64
	Unit      string
}

// metricThresholds is ordered; reports and critical paths follow this order
var metricThresholds = []MetricThreshold{
	{Metric: "LCP", Threshold: 2500, Unit: "ms"},
	{Metric: "CLS", Threshold: 0.1},
	{Metric: "INP", Threshold: 200, Unit: "ms"},
	{Metric: "TBT", Threshold: 300, Unit: "ms"},
	{Metric: "TTFB", Threshold: 800, Unit: "ms"},
	{Metric: "FCP", Threshold: 1800, Unit: "ms"},
}

// Thresholds returns a copy of the known metric thresholds in report order
func Thresholds() []MetricThreshold {
	out := make([]MetricThreshold, len(metricThresholds))
	copy(out, metricThresholds)
	return out
}

// LookupThreshold returns the threshold for a metric, if it is tracked
func LookupThreshold(metric string) (MetricThreshold, bool) {
	metric = NormalizeMetric(metric)
	for _, t := range metricThresholds {
		if t.Metric == metric {
			return t, true
		}
	}
	return MetricThreshold{}, false
}

// MetricRank returns the position of a metric in report order; unknown metrics sort last
func MetricRank(metric string) int {
	metric = NormalizeMetric(metric)
	for i, t := range metricThresholds {
		if t.Metric == metric {
			return i
		}
	}
	return len(metricThresholds)
}

// MetricNode is an observable metric with its current value
type MetricNode struct {
	Metric        string  `json:"metric"`
	Value         float64 `json:"value"`
	Threshold     float64 `json:"threshold"`
	Unit          string  `json:"unit,omitempty"`
	OverThreshold bool    `json:"overThreshold"`
}

// NewMetricNode creates a metric node, or returns false when the metric has no known threshold
func NewMetricNode(metric string, value float64) (*MetricNode, bool) {
	t, ok := LookupThreshold(metric)
	if !ok {
		return nil, false
	}
	return &MetricNode{
		Metric:        t.Metric,
		Value:         value,
		Threshold:     t.Threshold,
		Unit:          t.Unit,
		OverThreshold: value > t.Threshold,
	}, true
}

// MetricNodeID returns the graph node ID for a metric (e.g., "metric-LCP")
func MetricNodeID(metric string) string {
	return "metric-" + NormalizeMetric(metric)
}

// NormalizeMetrics keys values by normalized metric name. Raw keys are
// visited in sorted order and the first one to claim a name wins; the keys
// that lost a collision are returned in that same order.
func NormalizeMetrics(values map[string]float64) (map[string]float64, []string) {
	raw := make([]string, 0, len(values))
	for name := range values {
		raw = append(raw, name)
	}
	sort.Strings(raw)

	out := make(map[string]float64, len(values))
	var shadowed []string
	for _, name := range raw {
		metric := NormalizeMetric(name)
		if _, taken := out[metric]; taken {
			shadowed = append(shadowed, name)
			continue
		}
		out[metric] = values[name]
	}
	return out, shadowed
}
