package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/printqa/backend/internal/db"
	"github.com/printqa/backend/internal/util"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	conn *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. The caller owns the pool and closes it.
func NewPostgresStore(conn *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{conn: conn}
}

// Pool exposes the underlying pool for components sharing the database.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.conn
}

func toRecord(row db.AnalysisResult) Record {
	return Record{
		ID: row.ID,
		Report: analysis.Report{
			FileName:             row.FileName,
			IsWatertight:         row.IsWatertight,
			HasInvertedFaces:     row.HasInvertedFaces,
			VertexCount:          row.VertexCount,
			FaceCount:            row.FaceCount,
			FileSizeBytes:        row.FileSizeBytes,
			DurationMilliseconds: row.DurationMilliseconds,
			CreatedAt:            row.CreatedAt.Time.UTC(),
		},
	}
}

func optionalBool(v *bool) pgtype.Bool {
	if v == nil {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: *v, Valid: true}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Create inserts report inside a single transaction.
func (s *PostgresStore) Create(ctx context.Context, report analysis.Report) (Record, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	qtx := db.New(s.conn).WithTx(tx)

	row, err := qtx.CreateAnalysisResult(ctx, db.CreateAnalysisResultParams{
		FileName:             util.SanitizeFileName(report.FileName),
		IsWatertight:         report.IsWatertight,
		HasInvertedFaces:     report.HasInvertedFaces,
		VertexCount:          report.VertexCount,
		FaceCount:            report.FaceCount,
		FileSizeBytes:        report.FileSizeBytes,
		DurationMilliseconds: report.DurationMilliseconds,
		CreatedAt:            pgtype.Timestamptz{Time: report.CreatedAt, Valid: !report.CreatedAt.IsZero()},
	})
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis result: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("commit analysis result: %w", err)
	}

	logger.Debug("[Store] Stored analysis result", "id", row.ID, "file", row.FileName)
	return toRecord(row), nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Record, error) {
	row, err := db.New(s.conn).GetAnalysisResult(ctx, id)
	if err != nil {
		return Record{}, notFound(err)
	}
	return toRecord(row), nil
}

func (s *PostgresStore) GetByFileName(ctx context.Context, name string) (Record, error) {
	row, err := db.New(s.conn).GetLatestAnalysisResultByFileName(ctx, name)
	if err != nil {
		return Record{}, notFound(err)
	}
	return toRecord(row), nil
}

func (s *PostgresStore) List(ctx context.Context, params ListParams) ([]Record, error) {
	params = params.Normalize()
	rows, err := db.New(s.conn).ListAnalysisResults(ctx, db.ListAnalysisResultsParams{
		IsWatertight:     optionalBool(params.Watertight),
		HasInvertedFaces: optionalBool(params.Inverted),
		Skip:             int64(params.Skip),
		MaxResults:       int64(params.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list analysis results: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

func (s *PostgresStore) Statistics(ctx context.Context) (Statistics, error) {
	row, err := db.New(s.conn).GetAnalysisStatistics(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("get analysis statistics: %w", err)
	}
	return newStatistics(row.Total, row.WatertightCount, row.InvertedCount, row.CleanCount), nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, params UpdateParams) (Record, error) {
	arg := db.UpdateAnalysisResultParams{
		ID:               id,
		IsWatertight:     optionalBool(params.IsWatertight),
		HasInvertedFaces: optionalBool(params.HasInvertedFaces),
	}
	if params.FileName != nil {
		arg.FileName = pgtype.Text{String: util.SanitizeFileName(*params.FileName), Valid: true}
	}

	row, err := db.New(s.conn).UpdateAnalysisResult(ctx, arg)
	if err != nil {
		return Record{}, notFound(err)
	}
	return toRecord(row), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := db.New(s.conn).DeleteAnalysisResult(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete analysis result: %w", err)
	}
	return n > 0, nil
}
