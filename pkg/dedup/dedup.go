package dedup

import (
	"math"

	"github.com/ritzau/vitals-analyzer/pkg/classify"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

const (
	// crossValidationBoost rewards findings reported by more than one agent
	crossValidationBoost = 1.1
	// maxMergedConfidence keeps merged findings below certainty
	maxMergedConfidence = 0.95

	noFile        = "no-file"
	unknownSource = "unknown"
)

// MergeGroup describes one set of findings that collapsed into a single finding
type MergeGroup struct {
	Key        string   `json:"key"`
	KeptID     string   `json:"keptId"`
	MergedIDs  []string `json:"mergedIds"` // All member IDs in input order, including KeptID
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// Result is the outcome of a deduplication pass
type Result struct {
	Findings    []model.Finding `json:"findings"`
	MergedCount int             `json:"mergedCount"` // Number of findings absorbed into another
	MergeGroups []MergeGroup    `json:"mergeGroups"`
}

// Key returns the grouping key metric:type:file for a finding.
// Findings without an extractable file all share the "no-file" slot, which
// can over-merge unrelated same-metric/same-type findings.
func Key(f model.Finding) string {
	file := classify.ExtractFile(f)
	if file == "" {
		file = noFile
	}
	return f.MetricName() + ":" + classify.Classify(f) + ":" + file
}

// Deduplicate groups findings by Key and merges every group with more than
// one member. Output order follows the first appearance of each key, so the
// result is deterministic for a given input order. Inputs are not modified.
func Deduplicate(findings []model.Finding) *Result {
	var order []string
	groups := make(map[string][]int)

	for i, f := range findings {
		key := Key(f)
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	result := &Result{
		Findings:    make([]model.Finding, 0, len(order)),
		MergeGroups: make([]MergeGroup, 0),
	}

	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			result.Findings = append(result.Findings, findings[members[0]].Clone())
			continue
		}

		merged, group := merge(key, findings, members)
		result.Findings = append(result.Findings, merged)
		result.MergeGroups = append(result.MergeGroups, group)
	}

	result.MergedCount = len(findings) - len(result.Findings)
	return result
}

func merge(key string, findings []model.Finding, members []int) (model.Finding, MergeGroup) {
	base := members[0]
	for _, idx := range members[1:] {
		// strict comparison keeps the earliest member on ties
		if findings[idx].Confidence() > findings[base].Confidence() {
			base = idx
		}
	}

	var (
		sumConfidence float64
		maxReduction  float64
		sources       []string
		seen          = make(map[string]bool)
		ids           = make([]string, 0, len(members))
	)
	for _, idx := range members {
		f := findings[idx]
		ids = append(ids, f.ID)
		sumConfidence += f.Confidence()
		maxReduction = math.Max(maxReduction, f.Reduction())
		for _, src := range sourcesOf(f) {
			if !seen[src] {
				seen[src] = true
				sources = append(sources, src)
			}
		}
	}

	confidence := math.Min(maxMergedConfidence, sumConfidence/float64(len(members))*crossValidationBoost)

	merged := findings[base].Clone()
	if merged.Evidence == nil {
		merged.Evidence = &model.Evidence{}
	}
	merged.Evidence.Confidence = confidence
	if merged.EstimatedImpact == nil {
		merged.EstimatedImpact = &model.Impact{Metric: merged.Metric}
	}
	merged.EstimatedImpact.Reduction = maxReduction
	merged.Validation = &model.Validation{
		CrossValidated: true,
		SourceCount:    len(sources),
		Sources:        sources,
	}

	return merged, MergeGroup{
		Key:        key,
		KeptID:     merged.ID,
		MergedIDs:  ids,
		Confidence: confidence,
		Sources:    append([]string(nil), sources...),
	}
}

// sourcesOf returns the agent names behind a finding; an already merged
// finding carries every agent it was built from
func sourcesOf(f model.Finding) []string {
	if f.Validation != nil && len(f.Validation.Sources) > 0 {
		return f.Validation.Sources
	}
	switch {
	case f.Agent != "":
		return []string{f.Agent}
	case f.Evidence != nil && f.Evidence.Source != "":
		return []string{f.Evidence.Source}
	default:
		return []string{unknownSource}
	}
}
