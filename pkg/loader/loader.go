package loader

import (
	"path/filepath"
	"strings"

	"github.com/printqa/backend/pkg/loader/obj"
	"github.com/printqa/backend/pkg/loader/stl"
	"github.com/printqa/backend/pkg/mesh"
)

// Options controls how mesh files are decoded.
type Options struct {
	// WeldTolerance is the distance within which STL corners merge into a
	// shared vertex. Zero merges only identical coordinates.
	WeldTolerance float64
	// RejectPolygons fails OBJ faces with more than three corners instead of
	// fan triangulating them.
	RejectPolygons bool
}

// DefaultOptions returns exact welding and fan triangulation.
func DefaultOptions() Options {
	return Options{}
}

type fileKind string

const (
	kindUnknown fileKind = ""
	kindSTL     fileKind = "stl"
	kindOBJ     fileKind = "obj"
)

// DetectFormat returns the mesh format of data. The file extension wins when
// it is known; otherwise the content is sniffed.
func DetectFormat(data []byte, fileName string) mesh.Format {
	switch kindFromName(fileName) {
	case kindSTL:
		return stlFormat(data)
	case kindOBJ:
		return mesh.FormatOBJ
	}

	if len(data) >= 84 && stl.IsBinary(data) && !obj.Looks(data) {
		return mesh.FormatBinarySTL
	}
	if stl.IsASCII(data) {
		return mesh.FormatASCIISTL
	}
	if obj.Looks(data) {
		return mesh.FormatOBJ
	}
	return mesh.FormatUnknown
}

func kindFromName(fileName string) fileKind {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".stl":
		return kindSTL
	case ".obj":
		return kindOBJ
	}
	return kindUnknown
}

func stlFormat(data []byte) mesh.Format {
	if stl.IsBinary(data) {
		return mesh.FormatBinarySTL
	}
	return mesh.FormatASCIISTL
}

// Load decodes data into a mesh. It fails with mesh.ErrEmptyInput for an
// empty buffer, mesh.ErrUnsupportedFormat when the format is unknown or the
// structure is broken, and mesh.ErrEmptyMesh when no triangle survives.
//
// Example:
//
//	m, err := loader.Load(data, "part.stl", loader.DefaultOptions())
//	if errors.Is(err, mesh.ErrEmptyMesh) {
//		...
//	}
func Load(data []byte, fileName string, opts Options) (*mesh.Mesh, error) {
	if len(data) == 0 {
		return nil, mesh.ErrEmptyInput
	}

	var (
		m   *mesh.Mesh
		err error
	)
	switch DetectFormat(data, fileName) {
	case mesh.FormatBinarySTL:
		m, err = stl.DecodeBinary(data, opts.WeldTolerance)
	case mesh.FormatASCIISTL:
		m, err = stl.DecodeASCII(data, opts.WeldTolerance)
	case mesh.FormatOBJ:
		if !obj.Looks(data) {
			return nil, mesh.Malformed(mesh.FormatOBJ, 0, "no vertex or face records", nil)
		}
		m, err = obj.Decode(data, obj.Options{RejectPolygons: opts.RejectPolygons})
	default:
		return nil, mesh.Malformed(mesh.FormatUnknown, 0, "cannot determine file format", nil)
	}
	if err != nil {
		return nil, err
	}

	if m.IsEmpty() {
		return nil, mesh.ErrEmptyMesh
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	}
	return m, nil
}
