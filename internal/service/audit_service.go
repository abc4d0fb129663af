package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/pkg/config"
	"github.com/harmonia-mx/campus-api/pkg/jobs"
)

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditRecorder persists audit trail entries through a background worker
// pool so the write never sits on the request path.
type AuditRecorder struct {
	store   auditStore
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditRecorder constructs the recorder and its queue.
func NewAuditRecorder(store auditStore, cfg config.AuditConfig, metrics *MetricsService, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &AuditRecorder{store: store, metrics: metrics, logger: logger}
	r.queue = jobs.NewQueue("audit", r.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return r
}

// Start launches the worker pool.
func (r *AuditRecorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop drains the worker pool.
func (r *AuditRecorder) Stop() {
	r.queue.Stop()
}

// Record enqueues an audit entry. Falls back to a synchronous write when
// the queue is unavailable so entries are not silently lost.
func (r *AuditRecorder) Record(ctx context.Context, log *models.AuditLog) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if err := r.queue.Enqueue(jobs.Job{ID: log.ID, Type: log.Action, Payload: log}); err != nil {
		r.logger.Warn("audit enqueue failed, writing synchronously", zap.Error(err))
		if err := r.store.CreateAuditLog(ctx, log); err != nil {
			r.logger.Error("audit log write failed", zap.Error(err), zap.String("action", log.Action))
		}
	}
	r.metrics.SetAuditQueueDepth(r.queue.Depth())
}

func (r *AuditRecorder) handle(ctx context.Context, job jobs.Job) error {
	defer r.metrics.SetAuditQueueDepth(r.queue.Depth())
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("audit job %s carries unexpected payload %T", job.ID, job.Payload)
	}
	return r.store.CreateAuditLog(ctx, log)
}
