package analysis

import (
	"time"

	"github.com/printqa/backend/pkg/mesh"
)

// Report is the outcome of one successful analysis.
type Report struct {
	FileName             string    `json:"file_name"`
	IsWatertight         bool      `json:"is_watertight"`
	HasInvertedFaces     bool      `json:"has_inverted_faces"`
	VertexCount          int64     `json:"vertex_count"`
	FaceCount            int64     `json:"face_count"`
	FileSizeBytes        int64     `json:"file_size_bytes"`
	DurationMilliseconds int64     `json:"duration_milliseconds"`
	CreatedAt            time.Time `json:"created_at"`
}

// Clean reports whether the mesh is ready to print: watertight and without
// inverted faces.
func (r Report) Clean() bool {
	return r.IsWatertight && !r.HasInvertedFaces
}

// Input is the metadata of an uploaded file.
type Input struct {
	FileName string
	FileSize int64
}

// Assemble combines the geometric results with file metadata and timing.
func Assemble(in Input, m *mesh.Mesh, watertight, inverted bool, duration time.Duration, now time.Time) Report {
	return Report{
		FileName:             in.FileName,
		IsWatertight:         watertight,
		HasInvertedFaces:     inverted,
		VertexCount:          int64(m.VertexCount()),
		FaceCount:            int64(m.FaceCount()),
		FileSizeBytes:        in.FileSize,
		DurationMilliseconds: duration.Milliseconds(),
		CreatedAt:            now.UTC(),
	}
}
