package analysis

import "github.com/printqa/backend/pkg/adjacency"

type WindingResult struct {
	Inverted bool
	// Conflicts counts interior edges whose two triangles traverse them in
	// the same direction.
	Conflicts int
}

// CheckWinding looks for locally inverted faces. An interior edge {u,v}
// shared by t1 and t2 is consistent when one of them owns (u,v) and the
// other owns (v,u). Boundary and non-manifold edges are skipped; they only
// affect watertightness. Whether the whole surface faces inwards is not
// decided here.
func CheckWinding(adj *adjacency.Adjacency) WindingResult {
	var res WindingResult
	for e, owners := range adj.Edges {
		if len(owners) != 2 {
			continue
		}
		if !consistent(adj, e, owners[0], owners[1]) {
			res.Conflicts++
		}
	}
	res.Inverted = res.Conflicts > 0
	return res
}

func consistent(adj *adjacency.Adjacency, e adjacency.UndirectedEdge, t1, t2 int) bool {
	forward, okF := adj.Owner(adjacency.DirectedEdge{From: e.A, To: e.B})
	backward, okB := adj.Owner(adjacency.DirectedEdge{From: e.B, To: e.A})
	if !okF || !okB {
		// both triangles used the same direction
		return false
	}
	return (forward == t1 && backward == t2) || (forward == t2 && backward == t1)
}
