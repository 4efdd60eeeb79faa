package analysis

import (
	"slices"

	"github.com/printqa/backend/pkg/adjacency"
	"github.com/printqa/backend/pkg/mesh"
)

// zeroAreaEpsilon is the area below which a face with three distinct
// vertices is reported as zero area.
const zeroAreaEpsilon = 1e-12

// Diagnostics explain the two booleans of a report. They are returned to
// callers but not persisted, and never change the booleans.
type Diagnostics struct {
	Format            mesh.Format `json:"format"`
	BoundaryEdges     int         `json:"boundary_edges"`
	NonManifoldEdges  int         `json:"non_manifold_edges"`
	WindingConflicts  int         `json:"winding_conflicts"`
	DirectedConflicts int         `json:"directed_conflicts"`
	CollapsedFaces    int         `json:"collapsed_faces"`
	ZeroAreaFaces     int         `json:"zero_area_faces"`
	DuplicateFaces    int         `json:"duplicate_faces"`
	MergedVertices    int         `json:"merged_vertices"`
	Polygons          int         `json:"triangulated_polygons"`
}

// HasDegenerateFaces reports whether the mesh contained collapsed, zero area
// or duplicated faces.
func (d Diagnostics) HasDegenerateFaces() bool {
	return d.CollapsedFaces > 0 || d.ZeroAreaFaces > 0 || d.DuplicateFaces > 0
}

func collectDiagnostics(m *mesh.Mesh, adj *adjacency.Adjacency, wt WatertightResult, wd WindingResult) Diagnostics {
	return Diagnostics{
		Format:            m.Format,
		BoundaryEdges:     wt.BoundaryEdges,
		NonManifoldEdges:  wt.NonManifoldEdges,
		WindingConflicts:  wd.Conflicts,
		DirectedConflicts: len(adj.Conflicts),
		CollapsedFaces:    m.Diagnostics.CollapsedFaces,
		ZeroAreaFaces:     countZeroArea(m),
		DuplicateFaces:    countDuplicates(m),
		MergedVertices:    m.Diagnostics.MergedVertices,
		Polygons:          m.Diagnostics.Polygons,
	}
}

func countZeroArea(m *mesh.Mesh) int {
	n := 0
	for i := range m.Triangles {
		if m.Area(i) <= zeroAreaEpsilon {
			n++
		}
	}
	return n
}

// countDuplicates counts faces whose vertex set was already seen, in either
// winding.
func countDuplicates(m *mesh.Mesh) int {
	seen := make(map[mesh.Triangle]struct{}, len(m.Triangles))
	n := 0
	for _, t := range m.Triangles {
		key := t
		slices.Sort(key[:])
		if _, ok := seen[key]; ok {
			n++
			continue
		}
		seen[key] = struct{}{}
	}
	return n
}
