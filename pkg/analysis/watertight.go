package analysis

import "github.com/printqa/backend/pkg/adjacency"

type WatertightResult struct {
	Watertight bool
	// BoundaryEdges are referenced by a single triangle (holes).
	BoundaryEdges int
	// NonManifoldEdges are referenced by more than two triangles.
	NonManifoldEdges int
}

// CheckWatertight reports whether every undirected edge borders exactly two
// triangles. The whole map is always scanned so the counts are complete.
func CheckWatertight(adj *adjacency.Adjacency) WatertightResult {
	var res WatertightResult
	for _, owners := range adj.Edges {
		switch n := len(owners); {
		case n == 1:
			res.BoundaryEdges++
		case n > 2:
			res.NonManifoldEdges++
		}
	}
	res.Watertight = len(adj.Edges) > 0 && res.BoundaryEdges == 0 && res.NonManifoldEdges == 0
	return res
}
