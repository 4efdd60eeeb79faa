// Package store persists analysis reports. PostgresStore is the production
// implementation; MemoryStore backs development runs and handler tests.
package store

import (
	"context"
	"errors"

	"github.com/printqa/backend/pkg/analysis"
)

var ErrNotFound = errors.New("analysis result not found")

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Record is a persisted report.
type Record struct {
	ID int64 `json:"id"`
	analysis.Report
}

type ListParams struct {
	Skip  int
	Limit int
	// Watertight and Inverted filter on equality when set.
	Watertight *bool
	Inverted   *bool
}

// Normalize clamps skip and limit to the accepted range.
func (p ListParams) Normalize() ListParams {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	return p
}

func (p ListParams) matches(r analysis.Report) bool {
	if p.Watertight != nil && r.IsWatertight != *p.Watertight {
		return false
	}
	if p.Inverted != nil && r.HasInvertedFaces != *p.Inverted {
		return false
	}
	return true
}

// UpdateParams holds the editable fields of a record. Nil fields are left untouched.
type UpdateParams struct {
	FileName         *string `json:"file_name"`
	IsWatertight     *bool   `json:"is_watertight"`
	HasInvertedFaces *bool   `json:"has_inverted_faces"`
}

func (p UpdateParams) IsEmpty() bool {
	return p.FileName == nil && p.IsWatertight == nil && p.HasInvertedFaces == nil
}

type Statistics struct {
	Total                int64   `json:"total_analyses"`
	WatertightCount      int64   `json:"watertight_models"`
	InvertedCount        int64   `json:"models_with_inverted_faces"`
	CleanCount           int64   `json:"clean_models_count"`
	WatertightPercentage float64 `json:"watertight_percentage"`
}

func newStatistics(total, watertight, inverted, clean int64) Statistics {
	s := Statistics{
		Total:           total,
		WatertightCount: watertight,
		InvertedCount:   inverted,
		CleanCount:      clean,
	}
	if total > 0 {
		s.WatertightPercentage = float64(watertight) / float64(total) * 100
	}
	return s
}

// ResultStore is the persistence boundary for analysis reports.
type ResultStore interface {
	Create(ctx context.Context, report analysis.Report) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	// GetByFileName returns the most recent record for name.
	GetByFileName(ctx context.Context, name string) (Record, error)
	List(ctx context.Context, params ListParams) ([]Record, error)
	Statistics(ctx context.Context) (Statistics, error)
	Update(ctx context.Context, id int64, params UpdateParams) (Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
