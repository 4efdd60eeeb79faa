// Package adjacency derives edge-to-triangle maps from a triangle list.
//
// Two structures are built in a single pass over the triangles:
//
//   - EdgeAdjacency maps every undirected edge {u,v} to the triangles that
//     reference it, in triangle order. One owner is a boundary edge, two is
//     an interior manifold edge and more than two is non-manifold.
//   - DirectedEdgeIndex maps every directed edge (u,v) to the triangle that
//     traverses it in that direction. A consistently wound manifold mesh
//     never emits the same directed edge twice; when it happens the first
//     owner is kept and the repeat is recorded as a DirectedConflict.
//
// The maps are built per analysis and not shared.
package adjacency

import "github.com/printqa/backend/pkg/mesh"

// UndirectedEdge is an unordered vertex pair stored as A <= B.
type UndirectedEdge struct {
	A, B uint32
}

// NewUndirectedEdge returns the edge {u,v} in canonical order.
func NewUndirectedEdge(u, v uint32) UndirectedEdge {
	if u > v {
		u, v = v, u
	}
	return UndirectedEdge{A: u, B: v}
}

// DirectedEdge is an ordered vertex pair; (u,v) and (v,u) are distinct.
type DirectedEdge struct {
	From, To uint32
}

// Reverse returns (v,u) for (u,v).
func (e DirectedEdge) Reverse() DirectedEdge {
	return DirectedEdge{From: e.To, To: e.From}
}

// Undirected returns the canonical undirected edge of e.
func (e DirectedEdge) Undirected() UndirectedEdge {
	return NewUndirectedEdge(e.From, e.To)
}

type EdgeAdjacency map[UndirectedEdge][]int

type DirectedEdgeIndex map[DirectedEdge]int

// DirectedConflict records a triangle emitting a directed edge that an
// earlier triangle already owns.
type DirectedConflict struct {
	Edge   DirectedEdge
	First  int
	Second int
}

type Adjacency struct {
	Edges     EdgeAdjacency
	Directed  DirectedEdgeIndex
	Conflicts []DirectedConflict
}

// Build derives the edge maps of m in O(F) time and space.
func Build(m *mesh.Mesh) *Adjacency {
	faces := len(m.Triangles)
	adj := &Adjacency{
		// a closed manifold has 3F/2 undirected and 3F directed edges
		Edges:    make(EdgeAdjacency, faces*3/2+1),
		Directed: make(DirectedEdgeIndex, faces*3),
	}

	for t, tri := range m.Triangles {
		for _, e := range tri.Edges() {
			de := DirectedEdge{From: e[0], To: e[1]}
			if owner, ok := adj.Directed[de]; ok {
				adj.Conflicts = append(adj.Conflicts, DirectedConflict{
					Edge:   de,
					First:  owner,
					Second: t,
				})
			} else {
				adj.Directed[de] = t
			}

			ue := de.Undirected()
			adj.Edges[ue] = append(adj.Edges[ue], t)
		}
	}

	return adj
}

// ReferenceCount returns the sum of owner counts over all undirected edges.
// For any mesh it equals three times the number of triangles.
func (a *Adjacency) ReferenceCount() int {
	total := 0
	for _, owners := range a.Edges {
		total += len(owners)
	}
	return total
}

// Owner returns the triangle that traverses e, if any.
func (a *Adjacency) Owner(e DirectedEdge) (int, bool) {
	t, ok := a.Directed[e]
	return t, ok
}
