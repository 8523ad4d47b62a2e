package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/metrics"
	"github.com/blogem/content-api/repositories"
)

// Options tunes the services built by NewServices.
type Options struct {
	DebugDispatch bool
	AuditTimeout  time.Duration
}

// Services holds all service instances
type Services struct {
	Definition DefinitionService
	Content    ContentService
	Dispatch   DispatchService
	Retention  RetentionService
	// Audit is kept so the server can drain pending writes on shutdown.
	Audit *AsyncAuditSink
}

// NewServices creates and initializes all service instances
func NewServices(repos *repositories.Repositories, m *metrics.Metrics, log logrus.FieldLogger, opts Options) *Services {
	sink := NewAsyncAuditSink(repos.Audit, m, log, opts.AuditTimeout)
	return &Services{
		Definition: NewDefinitionService(repos.Definition, repos.Audit, log),
		Content:    NewContentService(repos.Definition, m, log),
		Dispatch:   NewDispatchService(repos.Definition, sink, m, log, opts.DebugDispatch),
		Retention:  NewRetentionService(repos.Audit, m, log),
		Audit:      sink,
	}
}

// RetentionService prunes old audit records
type RetentionService interface {
	PruneLogs(ctx context.Context, days int) (int64, error)
}

type retentionService struct {
	auditRepo repositories.AuditRepository
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewRetentionService creates a new retention service
func NewRetentionService(auditRepo repositories.AuditRepository, m *metrics.Metrics, log logrus.FieldLogger) RetentionService {
	return &retentionService{auditRepo: auditRepo, metrics: m, log: log, now: time.Now}
}

// PruneLogs deletes every audit record older than days days
func (s *retentionService) PruneLogs(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("retention must be at least one day, got %d", days)
	}
	cutoff := s.now().AddDate(0, 0, -days)

	n, err := s.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.AddPruned(n)
	s.log.WithFields(logrus.Fields{"deleted": n, "cutoff": cutoff.UTC()}).Info("audit records pruned")
	return n, nil
}
