// Package analysis decides whether a triangle mesh is watertight and
// consistently wound, and assembles the result into a Report.
package analysis

import (
	"time"

	"github.com/printqa/backend/pkg/adjacency"
	"github.com/printqa/backend/pkg/loader"
	"github.com/printqa/backend/pkg/logger"
	"github.com/printqa/backend/pkg/mesh"
)

// Result is a report together with the diagnostics that explain it.
type Result struct {
	Report      Report      `json:"result"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

type Analyzer struct {
	opts loader.Options
	now  func() time.Time
}

type AnalyzerOption func(*Analyzer)

// WithClock overrides the clock used for the report creation time.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer returns an Analyzer decoding files with opts.
func NewAnalyzer(opts loader.Options, options ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		opts: opts,
		now:  time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// Analyze loads data and runs both checks on it. Loader errors are returned
// unchanged so callers can classify them with mesh.IsInputError. The
// reported duration covers loading, adjacency and both analyzers.
func (a *Analyzer) Analyze(data []byte, fileName string) (*Result, error) {
	if len(data) == 0 {
		return nil, mesh.ErrEmptyInput
	}

	logger.Debug("[Analysis] Starting analysis", "file", fileName, "bytes", len(data))
	start := time.Now()

	m, err := loader.Load(data, fileName, a.opts)
	if err != nil {
		logger.Debug("[Analysis] Failed to load mesh", "file", fileName, "err", err)
		return nil, err
	}

	res := AnalyzeMesh(m)
	duration := time.Since(start)

	res.Report = Assemble(
		Input{FileName: fileName, FileSize: int64(len(data))},
		m,
		res.Report.IsWatertight,
		res.Report.HasInvertedFaces,
		duration,
		a.now(),
	)

	logger.Debug(
		"[Analysis] Analysis completed",
		"file", fileName,
		"format", m.Format,
		"vertices", res.Report.VertexCount,
		"faces", res.Report.FaceCount,
		"watertight", res.Report.IsWatertight,
		"inverted", res.Report.HasInvertedFaces,
		"duration_ms", res.Report.DurationMilliseconds,
	)
	return res, nil
}

// AnalyzeMesh runs the adjacency builder and both analyzers on an already
// loaded mesh. The returned report carries only the geometric fields.
func AnalyzeMesh(m *mesh.Mesh) *Result {
	adj := adjacency.Build(m)
	wt := CheckWatertight(adj)
	wd := CheckWinding(adj)

	return &Result{
		Report: Report{
			IsWatertight:     wt.Watertight,
			HasInvertedFaces: wd.Inverted,
			VertexCount:      int64(m.VertexCount()),
			FaceCount:        int64(m.FaceCount()),
		},
		Diagnostics: collectDiagnostics(m, adj, wt, wd),
	}
}
