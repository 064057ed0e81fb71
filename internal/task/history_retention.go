package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	logEventHistoryPruned      = "render_pass_history_pruned"
	logEventHistoryPruneFailed = "render_pass_history_prune_failed"
	logFieldDeleted            = "deleted"
	logFieldCutoff             = "cutoff"

	errorMessageMissingPruner = "task: missing render pass pruner"
	errorMessagePruneHistory  = "task: prune render pass history"
)

// ErrMissingPruner indicates a retention job built without storage.
var ErrMissingPruner = errors.New(errorMessageMissingPruner)

// RenderPassPruner deletes render pass records older than a cutoff.
type RenderPassPruner interface {
	DeleteRenderPassesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// HistoryRetentionOption customizes a HistoryRetentionJob.
type HistoryRetentionOption func(*HistoryRetentionJob)

// WithRetentionClock overrides the time source used to compute the cutoff.
func WithRetentionClock(clock func() time.Time) HistoryRetentionOption {
	return func(job *HistoryRetentionJob) {
		if clock != nil {
			job.now = clock
		}
	}
}

// HistoryRetentionJob keeps the render pass history within a retention window.
type HistoryRetentionJob struct {
	pruner    RenderPassPruner
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewHistoryRetentionJob builds a job that drops records older than retention.
func NewHistoryRetentionJob(pruner RenderPassPruner, logger *zap.Logger, retention time.Duration, options ...HistoryRetentionOption) *HistoryRetentionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	job := &HistoryRetentionJob{
		pruner:    pruner,
		logger:    logger,
		retention: retention,
		now:       time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(job)
		}
	}
	return job
}

// Prune deletes expired records. A non-positive retention keeps everything.
func (job *HistoryRetentionJob) Prune(ctx context.Context) (int64, error) {
	if job.pruner == nil {
		return 0, ErrMissingPruner
	}
	if job.retention <= 0 {
		return 0, nil
	}
	cutoff := job.now().UTC().Add(-job.retention)
	deleted, pruneErr := job.pruner.DeleteRenderPassesBefore(ctx, cutoff)
	if pruneErr != nil {
		return 0, fmt.Errorf("%s: %w", errorMessagePruneHistory, pruneErr)
	}
	job.logger.Info(logEventHistoryPruned, zap.Int64(logFieldDeleted, deleted), zap.Time(logFieldCutoff, cutoff))
	return deleted, nil
}

// Run adapts Prune to a scheduler Job, logging failures.
func (job *HistoryRetentionJob) Run(ctx context.Context) {
	if _, pruneErr := job.Prune(ctx); pruneErr != nil {
		job.logger.Warn(logEventHistoryPruneFailed, zap.Error(pruneErr))
	}
}
