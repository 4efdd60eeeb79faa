package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/printqa/backend/internal/joblock"
	"github.com/printqa/backend/internal/storage"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/internal/testrail"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/logger"
	"github.com/printqa/backend/pkg/mesh"
)

// AnalysisJob is the body of a message on AnalysisQueue.
type AnalysisJob struct {
	JobID          string `json:"job_id"`
	FileKey        string `json:"file_key"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`
	TestRailCaseID *int64 `json:"testrail_case_id,omitempty"`
}

const (
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// AnalysisEvent is published on TopicExchange once a job is finished.
type AnalysisEvent struct {
	JobID       string                `json:"job_id"`
	FileName    string                `json:"file_name"`
	Status      string                `json:"status"`
	Result      *store.Record         `json:"result,omitempty"`
	Diagnostics *analysis.Diagnostics `json:"diagnostics,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// JobLocker serializes work on one job across workers.
type JobLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type Processor struct {
	Store     store.ResultStore
	Objects   storage.ObjectStore
	Publisher Publisher
	Analyzer  *analysis.Analyzer
	// Reporter is optional.
	Reporter testrail.Reporter
	// MaxFileSize bounds downloads; zero means unbounded.
	MaxFileSize int64
	// Locker is optional. When set, a job already held by another worker
	// is acknowledged as a duplicate delivery.
	Locker JobLocker
}

// EnqueueAnalysis publishes job on AnalysisQueue.
func EnqueueAnalysis(ctx context.Context, p Publisher, job AnalysisJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.PublishFIFO(ctx, AnalysisQueue, data)
}

// ProcessAnalysisMessage runs one job. It returns an error only for failures
// worth retrying; malformed messages and meshes that cannot be loaded are
// reported as failed events and acknowledged.
func (p *Processor) ProcessAnalysisMessage(ctx context.Context, msg string) error {
	job := new(AnalysisJob)
	if err := json.Unmarshal([]byte(msg), job); err != nil {
		logger.Error("[Queue] Dropping malformed analysis job", "err", err)
		return nil
	}
	if job.FileKey == "" {
		logger.Error("[Queue] Dropping analysis job without file key", "job_id", job.JobID)
		return nil
	}

	if p.Locker == nil {
		return p.process(ctx, job)
	}
	err := p.Locker.WithLock(ctx, "analysis:"+job.FileKey, func(ctx context.Context) error {
		return p.process(ctx, job)
	})
	if errors.Is(err, joblock.ErrBusy) {
		logger.Warn("[Queue] Job is being processed by another worker", "job_id", job.JobID)
		return nil
	}
	return err
}

func (p *Processor) process(ctx context.Context, job *AnalysisJob) error {
	logger.Info("[Queue] Processing analysis job", "job_id", job.JobID, "file", job.FileName)
	start := time.Now()

	data, err := p.Objects.GetFile(ctx, job.FileKey, p.MaxFileSize)
	if errors.Is(err, storage.ErrObjectTooLarge) {
		p.discard(ctx, job)
		return p.publish(ctx, TopicAnalysisFailed, AnalysisEvent{
			JobID:    job.JobID,
			FileName: job.FileName,
			Status:   EventFailed,
			Error:    err.Error(),
		})
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", job.FileKey, err)
	}

	res, err := p.Analyzer.Analyze(data, job.FileName)
	if err != nil {
		if !mesh.IsInputError(err) {
			return fmt.Errorf("analyze %s: %w", job.FileName, err)
		}
		logger.Warn("[Queue] Mesh could not be loaded", "job_id", job.JobID, "file", job.FileName, "err", err)
		p.discard(ctx, job)
		return p.publish(ctx, TopicAnalysisFailed, AnalysisEvent{
			JobID:    job.JobID,
			FileName: job.FileName,
			Status:   EventFailed,
			Error:    err.Error(),
		})
	}

	record, err := p.Store.Create(ctx, res.Report)
	if err != nil {
		return fmt.Errorf("store result for %s: %w", job.FileName, err)
	}

	testrail.Report(ctx, p.Reporter, job.TestRailCaseID, record.Report)
	p.discard(ctx, job)

	logger.Info(
		"[Queue] Analysis job completed",
		"job_id", job.JobID,
		"id", record.ID,
		"watertight", record.IsWatertight,
		"inverted", record.HasInvertedFaces,
		"duration", time.Since(start),
	)
	return p.publish(ctx, TopicAnalysisCompleted, AnalysisEvent{
		JobID:       job.JobID,
		FileName:    record.FileName,
		Status:      EventCompleted,
		Result:      &record,
		Diagnostics: &res.Diagnostics,
	})
}

// discard removes the uploaded object; the job no longer needs it.
func (p *Processor) discard(ctx context.Context, job *AnalysisJob) {
	if err := p.Objects.DeleteFile(ctx, job.FileKey); err != nil {
		logger.Warn("[Queue] Failed to delete uploaded file", "key", job.FileKey, "err", err)
	}
}

// publish emits an event. Events are notifications, so a failure is logged
// rather than retried: the result is already persisted.
func (p *Processor) publish(ctx context.Context, topic string, event AnalysisEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.Publisher.PublishTopic(ctx, topic, data); err != nil {
		logger.Error("[Queue] Failed to publish event", "topic", topic, "job_id", event.JobID, "err", err)
	}
	return nil
}
