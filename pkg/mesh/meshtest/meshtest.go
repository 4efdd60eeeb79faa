// Package meshtest builds small meshes and encodes them as STL and OBJ for
// tests.
package meshtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/printqa/backend/pkg/mesh"
)

var cubeVertices = []mesh.Vertex{
	{X: 0, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: 1, Y: 1, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 1, Y: 0, Z: 1},
	{X: 1, Y: 1, Z: 1},
	{X: 0, Y: 1, Z: 1},
}

// outward facing, counter-clockwise seen from outside
var cubeTriangles = []mesh.Triangle{
	{0, 2, 1}, {0, 3, 2}, // bottom
	{4, 5, 6}, {4, 6, 7}, // top
	{0, 1, 5}, {0, 5, 4}, // front
	{2, 3, 7}, {2, 7, 6}, // back
	{0, 4, 7}, {0, 7, 3}, // left
	{1, 2, 6}, {1, 6, 5}, // right
}

// Cube returns a closed unit cube with 8 shared vertices and 12 consistently
// wound triangles.
func Cube() *mesh.Mesh {
	return &mesh.Mesh{
		Name:      "cube",
		Vertices:  append([]mesh.Vertex(nil), cubeVertices...),
		Triangles: append([]mesh.Triangle(nil), cubeTriangles...),
	}
}

// OpenCube returns the cube without its last triangle.
func OpenCube() *mesh.Mesh {
	m := Cube()
	m.Triangles = m.Triangles[:len(m.Triangles)-1]
	return m
}

// InvertedCube returns the cube with the winding of its first triangle
// reversed.
func InvertedCube() *mesh.Mesh {
	m := Cube()
	t := m.Triangles[0]
	m.Triangles[0] = mesh.Triangle{t[0], t[2], t[1]}
	return m
}

// ASCIISTL encodes m as ASCII STL with one facet per triangle and fresh
// corners per facet.
func ASCIISTL(m *mesh.Mesh) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "solid %s\n", m.Name)
	for _, t := range m.Triangles {
		n := normal(m, t)
		fmt.Fprintf(&buf, "  facet normal %g %g %g\n", n.X, n.Y, n.Z)
		fmt.Fprintf(&buf, "    outer loop\n")
		for _, idx := range t {
			v := m.Vertices[idx]
			fmt.Fprintf(&buf, "      vertex %g %g %g\n", v.X, v.Y, v.Z)
		}
		fmt.Fprintf(&buf, "    endloop\n")
		fmt.Fprintf(&buf, "  endfacet\n")
	}
	fmt.Fprintf(&buf, "endsolid %s\n", m.Name)
	return buf.Bytes()
}

// BinarySTL encodes m as binary STL.
func BinarySTL(m *mesh.Mesh) []byte {
	var buf bytes.Buffer
	var header [80]byte
	copy(header[:], m.Name)
	buf.Write(header[:])
	binary.Write(&buf, binary.LittleEndian, uint32(len(m.Triangles)))

	var rec [50]byte
	for _, t := range m.Triangles {
		n := normal(m, t)
		putVertex(rec[0:], n)
		for i, idx := range t {
			putVertex(rec[12+12*i:], m.Vertices[idx])
		}
		binary.LittleEndian.PutUint16(rec[48:], 0)
		buf.Write(rec[:])
	}
	return buf.Bytes()
}

// OBJ encodes m as Wavefront OBJ with shared vertices.
func OBJ(m *mesh.Mesh) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "o %s\n", m.Name)
	for _, v := range m.Vertices {
		fmt.Fprintf(&buf, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, t := range m.Triangles {
		fmt.Fprintf(&buf, "f %d %d %d\n", t[0]+1, t[1]+1, t[2]+1)
	}
	return buf.Bytes()
}

func putVertex(b []byte, v mesh.Vertex) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

func normal(m *mesh.Mesh, t mesh.Triangle) mesh.Vertex {
	a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l == 0 {
		return mesh.Vertex{}
	}
	return mesh.Vertex{X: n.X / l, Y: n.Y / l, Z: n.Z / l}
}
