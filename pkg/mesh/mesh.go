// Package mesh holds the shared-vertex triangle mesh produced by the loaders
// and consumed by the adjacency builder and analyzers.
package mesh

import "math"

type Format string

const (
	FormatUnknown   Format = ""
	FormatBinarySTL Format = "stl-binary"
	FormatASCIISTL  Format = "stl-ascii"
	FormatOBJ       Format = "obj"
)

// Vertex is a point in model space. Vertices have no identity beyond their
// position in Mesh.Vertices.
type Vertex struct {
	X, Y, Z float64
}

func (v Vertex) Sub(o Vertex) Vertex {
	return Vertex{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vertex) Cross(o Vertex) Vertex {
	return Vertex{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vertex) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Triangle is an ordered triple of vertex indices. The order defines the
// winding: its directed edges are (a,b), (b,c) and (c,a).
type Triangle [3]uint32

// Edges returns the three directed edges of t in winding order.
func (t Triangle) Edges() [3][2]uint32 {
	return [3][2]uint32{
		{t[0], t[1]},
		{t[1], t[2]},
		{t[2], t[0]},
	}
}

// Degenerate reports whether two corners of t reference the same vertex.
func (t Triangle) Degenerate() bool {
	return t[0] == t[1] || t[1] == t[2] || t[2] == t[0]
}

// LoadDiagnostics records conditions the loader resolved while building the
// mesh. They never change analysis results.
type LoadDiagnostics struct {
	// SourceFaces counts the triangles read from the file, after fan
	// triangulation and before collapsed faces are dropped.
	SourceFaces int
	// CollapsedFaces counts faces dropped because two of their corners
	// resolved to the same vertex.
	CollapsedFaces int
	// MergedVertices counts STL corners that were welded onto an existing
	// vertex.
	MergedVertices int
	// Polygons counts OBJ faces with more than three corners that were fan
	// triangulated.
	Polygons int
}

// Mesh is a vertex buffer plus an index buffer of triangles. A Mesh returned
// by a loader is never mutated afterwards.
type Mesh struct {
	Name        string
	Format      Format
	Vertices    []Vertex
	Triangles   []Triangle
	Diagnostics LoadDiagnostics
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// Area returns the area of triangle i.
func (m *Mesh) Area(i int) float64 {
	t := m.Triangles[i]
	a := m.Vertices[t[0]]
	b := m.Vertices[t[1]]
	c := m.Vertices[t[2]]
	return b.Sub(a).Cross(c.Sub(a)).Length() / 2
}

// AddTriangle appends t unless it is degenerate, in which case it is counted
// as collapsed. Loaders use it so that every stored triangle references three
// distinct vertices.
func (m *Mesh) AddTriangle(t Triangle) {
	m.Diagnostics.SourceFaces++
	if t.Degenerate() {
		m.Diagnostics.CollapsedFaces++
		return
	}
	m.Triangles = append(m.Triangles, t)
}
