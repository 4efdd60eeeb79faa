package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/printqa/backend/pkg/adjacency"
	"github.com/printqa/backend/pkg/loader"
	"github.com/printqa/backend/pkg/mesh"
	"github.com/printqa/backend/pkg/mesh/meshtest"
)

func TestAnalyzeMesh_Cubes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		m             *mesh.Mesh
		watertight    bool
		inverted      bool
		boundaryEdges int
		conflicts     int
	}{
		{
			name:       "closed_cube_is_clean",
			m:          meshtest.Cube(),
			watertight: true,
			inverted:   false,
		},
		{
			name:          "missing_triangle_opens_three_edges",
			m:             meshtest.OpenCube(),
			watertight:    false,
			inverted:      false,
			boundaryEdges: 3,
		},
		{
			name:       "reversed_triangle_is_inverted_but_closed",
			m:          meshtest.InvertedCube(),
			watertight: true,
			inverted:   true,
			conflicts:  3,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := AnalyzeMesh(tc.m)
			if res.Report.IsWatertight != tc.watertight {
				t.Fatalf("watertight: got %v, want %v", res.Report.IsWatertight, tc.watertight)
			}
			if res.Report.HasInvertedFaces != tc.inverted {
				t.Fatalf("inverted: got %v, want %v", res.Report.HasInvertedFaces, tc.inverted)
			}
			if res.Diagnostics.BoundaryEdges != tc.boundaryEdges {
				t.Fatalf("boundary edges: got %d, want %d", res.Diagnostics.BoundaryEdges, tc.boundaryEdges)
			}
			if res.Diagnostics.WindingConflicts != tc.conflicts {
				t.Fatalf("winding conflicts: got %d, want %d", res.Diagnostics.WindingConflicts, tc.conflicts)
			}
			if res.Diagnostics.NonManifoldEdges != 0 {
				t.Fatalf("expected no non-manifold edges, got %d", res.Diagnostics.NonManifoldEdges)
			}
		})
	}
}

func TestCheckWatertight_NonManifoldFin(t *testing.T) {
	m := &mesh.Mesh{
		Vertices: []mesh.Vertex{{X: 0}, {X: 1}, {Y: 1}, {Y: -1}, {Z: 1}},
		Triangles: []mesh.Triangle{
			{0, 1, 2},
			{1, 0, 3},
			{0, 1, 4},
		},
	}
	adj := adjacency.Build(m)

	wt := CheckWatertight(adj)
	if wt.Watertight {
		t.Fatal("expected fin to be non-watertight")
	}
	if wt.NonManifoldEdges != 1 {
		t.Fatalf("expected 1 non-manifold edge, got %d", wt.NonManifoldEdges)
	}
	if wt.BoundaryEdges != 6 {
		t.Fatalf("expected 6 boundary edges, got %d", wt.BoundaryEdges)
	}

	// the shared edge has three owners and is left to the watertight check
	wd := CheckWinding(adj)
	if wd.Inverted || wd.Conflicts != 0 {
		t.Fatalf("expected no winding conflicts, got %+v", wd)
	}
}

func TestCheckWatertight_EmptyAdjacency(t *testing.T) {
	adj := adjacency.Build(&mesh.Mesh{})
	if CheckWatertight(adj).Watertight {
		t.Fatal("expected a mesh without edges to be non-watertight")
	}
}

func TestCheckWinding_TwoTriangles(t *testing.T) {
	tests := []struct {
		name     string
		second   mesh.Triangle
		inverted bool
	}{
		{"opposite_traversal_is_consistent", mesh.Triangle{2, 1, 3}, false},
		{"same_traversal_is_a_conflict", mesh.Triangle{1, 2, 3}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &mesh.Mesh{
				Vertices:  []mesh.Vertex{{X: 0}, {X: 1}, {Y: 1}, {X: 1, Y: 1}},
				Triangles: []mesh.Triangle{{0, 1, 2}, tc.second},
			}
			wd := CheckWinding(adjacency.Build(m))
			if wd.Inverted != tc.inverted {
				t.Fatalf("got %v, want %v", wd.Inverted, tc.inverted)
			}
		})
	}
}

func TestAnalyzeMesh_DegenerateFacesAreFlagged(t *testing.T) {
	m := meshtest.Cube()
	m.Triangles = append(m.Triangles, m.Triangles[0])

	res := AnalyzeMesh(m)
	if res.Diagnostics.DuplicateFaces != 1 {
		t.Fatalf("expected 1 duplicate face, got %d", res.Diagnostics.DuplicateFaces)
	}
	if res.Diagnostics.DirectedConflicts != 3 {
		t.Fatalf("expected 3 directed conflicts, got %d", res.Diagnostics.DirectedConflicts)
	}
	if res.Report.IsWatertight {
		t.Fatal("expected duplicated face to break watertightness")
	}
	if !res.Diagnostics.HasDegenerateFaces() {
		t.Fatal("expected degenerate faces to be reported")
	}

	flat := &mesh.Mesh{
		Vertices:  []mesh.Vertex{{X: 0}, {X: 1}, {X: 2}},
		Triangles: []mesh.Triangle{{0, 1, 2}},
	}
	if got := AnalyzeMesh(flat).Diagnostics.ZeroAreaFaces; got != 1 {
		t.Fatalf("expected 1 zero area face, got %d", got)
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalyzer(loader.DefaultOptions(), WithClock(func() time.Time { return fixed }))
	data := meshtest.BinarySTL(meshtest.Cube())

	res, err := a.Analyze(data, "cube_perfect.stl")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	r := res.Report
	if r.FileName != "cube_perfect.stl" {
		t.Fatalf("unexpected file name %q", r.FileName)
	}
	if !r.IsWatertight || r.HasInvertedFaces || !r.Clean() {
		t.Fatalf("expected clean report, got %+v", r)
	}
	if r.VertexCount != 8 || r.FaceCount != 12 {
		t.Fatalf("expected 8 vertices and 12 faces, got %d and %d", r.VertexCount, r.FaceCount)
	}
	if r.FileSizeBytes != int64(len(data)) {
		t.Fatalf("expected file size %d, got %d", len(data), r.FileSizeBytes)
	}
	if r.DurationMilliseconds < 0 {
		t.Fatalf("expected non-negative duration, got %d", r.DurationMilliseconds)
	}
	if !r.CreatedAt.Equal(fixed) {
		t.Fatalf("expected created_at %v, got %v", fixed, r.CreatedAt)
	}
	if res.Diagnostics.Format != mesh.FormatBinarySTL {
		t.Fatalf("expected binary format, got %q", res.Diagnostics.Format)
	}
}

func TestAnalyzer_Idempotent(t *testing.T) {
	a := NewAnalyzer(loader.DefaultOptions())
	data := meshtest.ASCIISTL(meshtest.InvertedCube())

	first, err := a.Analyze(data, "cubo_invertido.stl")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	second, err := a.Analyze(data, "cubo_invertido.stl")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	f, s := first.Report, second.Report
	if f.IsWatertight != s.IsWatertight || f.HasInvertedFaces != s.HasInvertedFaces ||
		f.VertexCount != s.VertexCount || f.FaceCount != s.FaceCount {
		t.Fatalf("expected identical results, got %+v and %+v", f, s)
	}
	if !f.HasInvertedFaces {
		t.Fatal("expected inverted faces")
	}
}

func TestAnalyzer_Errors(t *testing.T) {
	a := NewAnalyzer(loader.DefaultOptions())

	tests := []struct {
		name     string
		data     []byte
		fileName string
		want     error
	}{
		{"zero_bytes", []byte{}, "empty_file.txt", mesh.ErrEmptyInput},
		{"no_triangles", []byte("solid x\nendsolid x\n"), "invalid.stl", mesh.ErrEmptyMesh},
		{"garbage", []byte("not a mesh at all"), "invalid.stl", mesh.ErrUnsupportedFormat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := a.Analyze(tc.data, tc.fileName)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if res != nil {
				t.Fatalf("expected no result, got %+v", res)
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	r := Assemble(
		Input{FileName: "a.obj", FileSize: 99},
		meshtest.Cube(),
		true,
		false,
		1500*time.Millisecond,
		now,
	)

	if r.DurationMilliseconds != 1500 {
		t.Fatalf("expected 1500ms, got %d", r.DurationMilliseconds)
	}
	if r.CreatedAt.Location() != time.UTC || !r.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at in UTC equal to %v, got %v", now, r.CreatedAt)
	}
	if r.FileSizeBytes != 99 || r.VertexCount != 8 || r.FaceCount != 12 {
		t.Fatalf("unexpected report %+v", r)
	}
}
