// Package obj decodes Wavefront OBJ geometry. Only vertex positions and faces
// are read; texture coordinates, normals, groups and materials are ignored.
package obj

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/printqa/backend/pkg/mesh"
)

type Options struct {
	// RejectPolygons fails faces with more than three corners instead of
	// fan triangulating them.
	RejectPolygons bool
}

// Looks reports whether data contains at least one OBJ vertex or face record.
func Looks(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if strings.HasPrefix(line, "v ") || strings.HasPrefix(line, "f ") {
			return true
		}
	}
	return false
}

// Decode parses OBJ data. Face indices are 1-based; negative indices are
// relative to the vertices read so far.
func Decode(data []byte, opts Options) (*mesh.Mesh, error) {
	m := &mesh.Mesh{Format: mesh.FormatOBJ}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, mesh.Malformed(mesh.FormatOBJ, lineNum, "vertex needs three coordinates", nil)
			}
			v, err := parseVertex(fields[1:4])
			if err != nil {
				return nil, mesh.Malformed(mesh.FormatOBJ, lineNum, "invalid vertex", err)
			}
			m.Vertices = append(m.Vertices, v)
		case "f":
			corners := fields[1:]
			if len(corners) < 3 {
				return nil, mesh.Malformed(mesh.FormatOBJ, lineNum,
					fmt.Sprintf("face has %d corners, want at least 3", len(corners)), nil)
			}
			if len(corners) > 3 && opts.RejectPolygons {
				return nil, mesh.Malformed(mesh.FormatOBJ, lineNum,
					fmt.Sprintf("face has %d corners and polygons are rejected", len(corners)), nil)
			}
			idx := make([]uint32, len(corners))
			for i, c := range corners {
				v, err := resolveIndex(c, len(m.Vertices))
				if err != nil {
					return nil, mesh.Malformed(mesh.FormatOBJ, lineNum, "invalid face index", err)
				}
				idx[i] = v
			}
			if len(idx) > 3 {
				m.Diagnostics.Polygons++
			}
			// fan triangulation around the first corner
			for i := 1; i < len(idx)-1; i++ {
				m.AddTriangle(mesh.Triangle{idx[0], idx[i], idx[i+1]})
			}
		default:
			// vt, vn, g, o, s, usemtl, mtllib, l, p
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, mesh.Malformed(mesh.FormatOBJ, lineNum, "read failed", err)
	}

	return m, nil
}

func parseVertex(fields []string) (mesh.Vertex, error) {
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return mesh.Vertex{}, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return mesh.Vertex{}, fmt.Errorf("non-finite coordinate %q", f)
		}
		c[i] = v
	}
	return mesh.Vertex{X: c[0], Y: c[1], Z: c[2]}, nil
}

// resolveIndex turns a face corner such as "7", "7/2", "7//3" or "-1" into a
// 0-based vertex index.
func resolveIndex(corner string, vertexCount int) (uint32, error) {
	ref, _, _ := strings.Cut(corner, "/")
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, err
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n += int64(vertexCount)
	default:
		return 0, fmt.Errorf("index 0 is not valid, indices start at 1")
	}
	if n < 0 || n >= int64(vertexCount) {
		return 0, fmt.Errorf("index %s out of range for %d vertices", ref, vertexCount)
	}
	return uint32(n), nil
}
