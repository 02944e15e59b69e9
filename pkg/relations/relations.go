package relations

import (
	"strings"

	"github.com/ritzau/vitals-analyzer/pkg/classify"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

// Edge strengths per relationship kind
const (
	DuplicateStrength          = 1.0
	WasteToBottleneckStrength  = 0.8
	FileCompatibleStrength     = 0.6
	MetricDependencyStrength   = 0.7
	TimingCompoundingStrength  = 0.65
	minSharedDuplicateKeywords = 3
)

// Detector proposes an edge between two findings, or returns nil.
// Detectors are pure and hold no state.
type Detector struct {
	Name   string
	Detect func(a, b model.Finding) *model.Edge
}

// Detectors is evaluated in priority order; only the first proposed edge is kept per pair
var Detectors = []Detector{
	{Name: "duplicate", Detect: DetectDuplicate},
	{Name: "file-compatible", Detect: DetectFileCompatible},
	{Name: "metric-dependency", Detect: DetectMetricDependency},
	{Name: "timing-compounding", Detect: DetectTimingCompounding},
}

// Detect runs the detectors in priority order and returns the first edge
// found together with the detector name. It returns nil when no detector matches.
func Detect(a, b model.Finding) (*model.Edge, string) {
	for _, d := range Detectors {
		if edge := d.Detect(a, b); edge != nil {
			return edge, d.Name
		}
	}
	return nil, ""
}

var duplicateKeywords = []string{"hero", "image", "font", "script", "css", "render-blocking", "unused", "preload"}

// DetectDuplicate links two reports of the same issue on the same file
func DetectDuplicate(a, b model.Finding) *model.Edge {
	if a.MetricName() != b.MetricName() {
		return nil
	}
	if classify.Classify(a) != classify.Classify(b) {
		return nil
	}
	if sharedKeywords(a.Description, b.Description, duplicateKeywords) < minSharedDuplicateKeywords {
		return nil
	}
	if !sameReferenceFile(a, b) {
		return nil
	}
	return &model.Edge{
		From:         a.ID,
		To:           b.ID,
		Relationship: model.RelDuplicates,
		Strength:     DuplicateStrength,
		Mechanism:    "Both findings describe the same issue on " + classify.ReferenceFile(a),
	}
}

// compatiblePairs lists issue types on the same file that feed into each other
var compatiblePairs = [][2]string{
	{classify.UnusedCode, classify.BlockingResource},
	{classify.FontFormat, classify.FontPreload},
	{classify.UnusedCode, classify.FontFormat},
	{classify.ResourcePreload, classify.BlockingResource},
}

func compatible(typeA, typeB string) bool {
	for _, p := range compatiblePairs {
		if (p[0] == typeA && p[1] == typeB) || (p[0] == typeB && p[1] == typeA) {
			return true
		}
	}
	return false
}

// DetectFileCompatible links two different issues on the same file. When one
// finding is waste and the other a bottleneck, the waste feeds the bottleneck.
func DetectFileCompatible(a, b model.Finding) *model.Edge {
	if !sameReferenceFile(a, b) {
		return nil
	}
	typeA, typeB := classify.Classify(a), classify.Classify(b)
	if !compatible(typeA, typeB) {
		return nil
	}

	file := classify.ReferenceFile(a)
	switch {
	case a.Type == model.FindingWaste && b.Type == model.FindingBottleneck:
		return wasteEdge(a, b, file)
	case b.Type == model.FindingWaste && a.Type == model.FindingBottleneck:
		return wasteEdge(b, a, file)
	}
	return &model.Edge{
		From:         a.ID,
		To:           b.ID,
		Relationship: model.RelContributes,
		Strength:     FileCompatibleStrength,
		Mechanism:    typeA + " and " + typeB + " both affect " + file,
	}
}

func wasteEdge(waste, bottleneck model.Finding, file string) *model.Edge {
	return &model.Edge{
		From:         waste.ID,
		To:           bottleneck.ID,
		Relationship: model.RelContributes,
		Strength:     WasteToBottleneckStrength,
		Mechanism:    "Wasted bytes in " + file + " make the blocking load of " + file + " slower",
	}
}

// metricDependencies maps an upstream metric to the metrics it feeds
var metricDependencies = [][2]string{
	{"FCP", "LCP"},
	{"TTFB", "FCP"},
	{"TTFB", "LCP"},
	{"TBT", "INP"},
}

// DetectMetricDependency links findings whose metrics depend on each other
func DetectMetricDependency(a, b model.Finding) *model.Edge {
	ma, mb := a.MetricName(), b.MetricName()
	for _, dep := range metricDependencies {
		switch {
		case dep[0] == ma && dep[1] == mb:
			return dependsEdge(a, b)
		case dep[0] == mb && dep[1] == ma:
			return dependsEdge(b, a)
		}
	}
	return nil
}

func dependsEdge(upstream, downstream model.Finding) *model.Edge {
	return &model.Edge{
		From:         upstream.ID,
		To:           downstream.ID,
		Relationship: model.RelDepends,
		Strength:     MetricDependencyStrength,
		Mechanism:    downstream.MetricName() + " cannot improve before " + upstream.MetricName(),
	}
}

var preLCPPhrases = []string{
	"render-blocking", "render blocking", "blocks rendering", "before lcp", "pre-lcp",
	"delays lcp", "critical path", "critical request", "above the fold",
}

var renderingIssues = map[string]bool{
	classify.BlockingResource: true,
	classify.FontPreload:      true,
	classify.ResourcePreload:  true,
	classify.InlineCSS:        true,
	classify.ResourceHints:    true,
}

// DetectTimingCompounding links rendering issues that stack up before LCP
func DetectTimingCompounding(a, b model.Finding) *model.Edge {
	if a.MetricName() != "LCP" || b.MetricName() != "LCP" {
		return nil
	}
	if !mentionsAny(a.Description, preLCPPhrases) || !mentionsAny(b.Description, preLCPPhrases) {
		return nil
	}
	if !renderingIssues[classify.Classify(a)] || !renderingIssues[classify.Classify(b)] {
		return nil
	}
	return &model.Edge{
		From:         a.ID,
		To:           b.ID,
		Relationship: model.RelCompounds,
		Strength:     TimingCompoundingStrength,
		Mechanism:    "Both delay rendering before LCP; their costs add up",
	}
}

func sameReferenceFile(a, b model.Finding) bool {
	fa := classify.ReferenceFile(a)
	return fa != "" && fa == classify.ReferenceFile(b)
}

func sharedKeywords(a, b string, keywords []string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	count := 0
	for _, kw := range keywords {
		if strings.Contains(a, kw) && strings.Contains(b, kw) {
			count++
		}
	}
	return count
}

func mentionsAny(text string, phrases []string) bool {
	text = strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
