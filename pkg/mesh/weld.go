package mesh

import "math"

type weldKey struct {
	x, y, z int64
}

type exactKey struct {
	x, y, z uint64
}

// Welder merges vertices by coordinate while a mesh is being built. With a
// zero tolerance only bit-identical coordinates merge (with -0 and +0
// treated as equal). Otherwise a vertex merges into the nearest earlier
// vertex at Euclidean distance <= tolerance, found through a grid of
// tolerance-sized cells and the 27 cells around the vertex's own.
type Welder struct {
	mesh      *Mesh
	tolerance float64
	exact     map[exactKey]uint32
	grid      map[weldKey][]uint32
}

// NewWelder returns a Welder that appends new vertices to m.
func NewWelder(m *Mesh, tolerance float64, sizeHint int) *Welder {
	w := &Welder{mesh: m, tolerance: tolerance}
	if tolerance > 0 {
		w.grid = make(map[weldKey][]uint32, sizeHint)
	} else {
		w.exact = make(map[exactKey]uint32, sizeHint)
	}
	return w
}

// Add returns the index of v, appending it to the mesh if no equal vertex
// exists yet.
func (w *Welder) Add(v Vertex) uint32 {
	if w.tolerance > 0 {
		return w.addNear(v)
	}

	key := exactKey{bits(v.X), bits(v.Y), bits(v.Z)}
	if idx, ok := w.exact[key]; ok {
		w.mesh.Diagnostics.MergedVertices++
		return idx
	}
	idx := w.push(v)
	w.exact[key] = idx
	return idx
}

func (w *Welder) cell(v Vertex) weldKey {
	return weldKey{
		x: int64(math.Floor(v.X / w.tolerance)),
		y: int64(math.Floor(v.Y / w.tolerance)),
		z: int64(math.Floor(v.Z / w.tolerance)),
	}
}

// addNear scans the neighbouring cells: any point within tolerance of v
// lies at most one cell away on each axis.
func (w *Welder) addNear(v Vertex) uint32 {
	home := w.cell(v)
	limit := w.tolerance * w.tolerance
	best, bestDist := uint32(0), math.Inf(1)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				key := weldKey{home.x + dx, home.y + dy, home.z + dz}
				for _, idx := range w.grid[key] {
					d := distSq(w.mesh.Vertices[idx], v)
					if d <= limit && (d < bestDist || d == bestDist && idx < best) {
						best, bestDist = idx, d
					}
				}
			}
		}
	}
	if !math.IsInf(bestDist, 1) {
		w.mesh.Diagnostics.MergedVertices++
		return best
	}
	idx := w.push(v)
	w.grid[home] = append(w.grid[home], idx)
	return idx
}

func distSq(a, b Vertex) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

func (w *Welder) push(v Vertex) uint32 {
	idx := uint32(len(w.mesh.Vertices))
	w.mesh.Vertices = append(w.mesh.Vertices, v)
	return idx
}

func bits(f float64) uint64 {
	if f == 0 {
		return 0
	}
	return math.Float64bits(f)
}
