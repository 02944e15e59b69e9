package output

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

// suggestionNamespace makes suggestion IDs stable for the same finding ID
var suggestionNamespace = uuid.MustParse("6f1c2a9e-4b7d-4f0a-9c43-2d8e5b1a7c10")

// Suggestion is a user-facing recommendation derived from one finding
type Suggestion struct {
	ID          string   `json:"id"`
	FindingID   string   `json:"findingId"`
	Priority    int      `json:"priority"` // 1 is the most important
	Title       string   `json:"title"`
	Metric      string   `json:"metric"`
	IssueType   string   `json:"issueType"`
	Role        string   `json:"role"` // "root-cause", "symptom" or "standalone"
	Reduction   float64  `json:"estimatedReduction"`
	Confidence  float64  `json:"confidence"`
	Mechanism   string   `json:"mechanism"`
	Evidence    string   `json:"evidence,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	CriticalFor []string `json:"criticalFor,omitempty"` // Metrics whose critical path includes this finding
	Explains    []string `json:"explains,omitempty"`
}

const (
	roleRootCause  = "root-cause"
	roleSymptom    = "symptom"
	roleStandalone = "standalone"
)

// ExportSuggestions turns the findings of an analyzed graph into prioritized
// suggestions. Root causes on a critical path come first, then other root
// causes, then symptoms, then findings not linked to anything; within a tier
// higher expected savings (reduction × confidence) rank first.
func ExportSuggestions(g *model.Graph) []Suggestion {
	criticalFor := make(map[string][]string)
	for _, cp := range g.CriticalPaths {
		for _, id := range cp.Path {
			criticalFor[id] = append(criticalFor[id], cp.Metric)
		}
	}

	type ranked struct {
		s    Suggestion
		tier int
	}
	var all []ranked

	for _, n := range g.FindingNodes() {
		f := n.Finding
		s := Suggestion{
			ID:          uuid.NewSHA1(suggestionNamespace, []byte(n.ID)).String(),
			FindingID:   n.ID,
			Title:       n.Description,
			Metric:      f.MetricName(),
			IssueType:   n.IssueType,
			Role:        roleStandalone,
			Reduction:   f.Reduction(),
			Confidence:  f.Confidence(),
			Mechanism:   f.Mechanism(),
			Evidence:    f.Reference(),
			CriticalFor: criticalFor[n.ID],
		}
		if f.Validation != nil {
			s.Sources = f.Validation.Sources
		} else if f.Agent != "" {
			s.Sources = []string{f.Agent}
		}
		for _, id := range n.Causes {
			if g.Nodes[id].IsFinding() {
				s.Explains = append(s.Explains, id)
			}
		}

		tier := 3
		switch {
		case g.IsRootCause(n.ID) && len(s.CriticalFor) > 0:
			s.Role, tier = roleRootCause, 0
		case g.IsRootCause(n.ID):
			s.Role, tier = roleRootCause, 1
		case g.IsSymptom(n.ID):
			s.Role, tier = roleSymptom, 2
		}
		all = append(all, ranked{s: s, tier: tier})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].tier != all[j].tier {
			return all[i].tier < all[j].tier
		}
		vi := all[i].s.Reduction * all[i].s.Confidence
		vj := all[j].s.Reduction * all[j].s.Confidence
		if vi != vj {
			return vi > vj
		}
		return all[i].s.FindingID < all[j].s.FindingID
	})

	out := make([]Suggestion, len(all))
	for i, r := range all {
		r.s.Priority = i + 1
		out[i] = r.s
	}
	return out
}

// WriteSuggestions writes suggestions as indented JSON
func WriteSuggestions(w io.Writer, suggestions []Suggestion) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(suggestions)
}

// WriteJSON writes any value as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
