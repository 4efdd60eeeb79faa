// Package stl decodes ASCII and binary STL files into welded meshes.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/printqa/backend/pkg/mesh"
)

const (
	headerSize = 80
	recordSize = 50
	// offset of the first vertex inside a record, after the facet normal
	vertexOffset = 12
)

// short name, for convenience
var le = binary.LittleEndian

// IsBinary reports whether data should be decoded as binary STL. Binary
// files may also start with "solid" in their header, so the record count is
// checked against the file size first.
func IsBinary(data []byte) bool {
	if len(data) >= headerSize+4 {
		count := uint64(le.Uint32(data[headerSize:]))
		if uint64(len(data)) == headerSize+4+count*recordSize {
			return true
		}
	}
	return !IsASCII(data)
}

// IsASCII reports whether data starts with the "solid" keyword.
func IsASCII(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("solid"))
}

// Decode parses an STL file in either encoding. Corners are welded with the
// given tolerance so that neighbouring facets share vertex indices.
func Decode(data []byte, tolerance float64) (*mesh.Mesh, error) {
	if IsBinary(data) {
		return DecodeBinary(data, tolerance)
	}
	return DecodeASCII(data, tolerance)
}

// DecodeBinary parses a binary STL: an 80 byte header, a little endian
// uint32 facet count and one 50 byte record per facet.
func DecodeBinary(data []byte, tolerance float64) (*mesh.Mesh, error) {
	if len(data) < headerSize+4 {
		return nil, mesh.Malformed(mesh.FormatBinarySTL, 0,
			fmt.Sprintf("truncated header: %d bytes", len(data)), nil)
	}

	count := uint64(le.Uint32(data[headerSize:]))
	expected := headerSize + 4 + count*recordSize
	if uint64(len(data)) < expected {
		return nil, mesh.Malformed(mesh.FormatBinarySTL, 0,
			fmt.Sprintf("truncated: header declares %d facets (%d bytes), got %d bytes", count, expected, len(data)), nil)
	}

	m := &mesh.Mesh{
		Name:      strings.TrimRight(string(data[:headerSize]), " \x00"),
		Format:    mesh.FormatBinarySTL,
		Triangles: make([]mesh.Triangle, 0, count),
	}
	w := mesh.NewWelder(m, tolerance, int(count/2)+3)

	offset := headerSize + 4
	for i := uint64(0); i < count; i++ {
		rec := data[offset : offset+recordSize]
		var tri mesh.Triangle
		for v := range 3 {
			p := rec[vertexOffset+12*v:]
			vert := mesh.Vertex{
				X: float64(math.Float32frombits(le.Uint32(p[0:]))),
				Y: float64(math.Float32frombits(le.Uint32(p[4:]))),
				Z: float64(math.Float32frombits(le.Uint32(p[8:]))),
			}
			if !finite(vert) {
				return nil, mesh.Malformed(mesh.FormatBinarySTL, 0,
					fmt.Sprintf("facet %d has a non-finite coordinate", i), nil)
			}
			tri[v] = w.Add(vert)
		}
		m.AddTriangle(tri)
		offset += recordSize
	}

	return m, nil
}

// DecodeASCII parses the "solid ... facet normal ... outer loop ... vertex"
// text encoding. Several solids in one file are merged into one mesh.
func DecodeASCII(data []byte, tolerance float64) (*mesh.Mesh, error) {
	m := &mesh.Mesh{Format: mesh.FormatASCIISTL}
	w := mesh.NewWelder(m, tolerance, 0)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	seenSolid := false
	inFacet := false
	var corners []uint32

	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "solid":
			if !seenSolid && len(fields) > 1 {
				m.Name = strings.Join(fields[1:], " ")
			}
			seenSolid = true
		case "facet":
			if !seenSolid {
				return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "facet before solid", nil)
			}
			if inFacet {
				return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "nested facet", nil)
			}
			inFacet = true
			corners = corners[:0]
		case "vertex":
			if !inFacet {
				return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "vertex outside facet", nil)
			}
			if len(fields) < 4 {
				return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "vertex needs three coordinates", nil)
			}
			vert, err := parseVertex(fields[1:4])
			if err != nil {
				return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "invalid vertex", err)
			}
			corners = append(corners, w.Add(vert))
		case "endfacet":
			if !inFacet {
				return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "endfacet without facet", nil)
			}
			if len(corners) != 3 {
				return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum,
					fmt.Sprintf("facet has %d vertices, want 3", len(corners)), nil)
			}
			m.AddTriangle(mesh.Triangle{corners[0], corners[1], corners[2]})
			inFacet = false
		case "outer", "endloop", "endsolid":
		default:
			// exporters add colour and metadata lines; they carry no geometry
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "read failed", err)
	}
	if !seenSolid {
		return nil, mesh.Malformed(mesh.FormatASCIISTL, 0, "missing solid keyword", nil)
	}
	if inFacet {
		return nil, mesh.Malformed(mesh.FormatASCIISTL, lineNum, "unexpected end of file inside facet", nil)
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
		c[i] = v
	}
	v := mesh.Vertex{X: c[0], Y: c[1], Z: c[2]}
	if !finite(v) {
		return mesh.Vertex{}, fmt.Errorf("non-finite coordinate")
	}
	return v, nil
}

func finite(v mesh.Vertex) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
