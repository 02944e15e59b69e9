package cycles

import (
	"sort"

	"github.com/ritzau/vitals-analyzer/pkg/topology"
	"gonum.org/v1/gonum/graph/topo"
)

// FindCausalCycles returns groups of findings that (transitively) cause each
// other. Each cycle is sorted, and cycles are ordered by their first node ID.
func FindCausalCycles(idx *topology.Index) [][]string {
	cycles := make([][]string, 0)
	for _, scc := range topo.TarjanSCC(idx.Graph()) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			if label := idx.Label(n.ID()); label != "" {
				ids = append(ids, label)
			}
		}
		sort.Strings(ids)
		cycles = append(cycles, ids)
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
