package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/metrics"
	"github.com/blogem/content-api/models"
	"github.com/blogem/content-api/repositories"
)

var errAuditPanic = errors.New("audit write panicked")

// AuditSink accepts audit records without blocking the caller.
type AuditSink interface {
	Record(ctx context.Context, rec *models.AuditRecord)
}

// AsyncAuditSink writes each record on its own goroutine. Failures, including
// panics in the store, are logged and counted and never reach the caller.
type AsyncAuditSink struct {
	repo    repositories.AuditRepository
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsyncAuditSink creates a sink whose writes are bounded by timeout.
func NewAsyncAuditSink(repo repositories.AuditRepository, m *metrics.Metrics, log logrus.FieldLogger, timeout time.Duration) *AsyncAuditSink {
	return &AsyncAuditSink{repo: repo, log: log, metrics: m, timeout: timeout}
}

// Record schedules rec for writing. The write outlives the request context.
func (s *AsyncAuditSink) Record(ctx context.Context, rec *models.AuditRecord) {
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				s.log.WithFields(logrus.Fields{
					"definition_id": rec.DefinitionID,
					"panic":         p,
				}).Error("audit write panicked")
				s.metrics.ObserveAuditWrite(errAuditPanic)
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		err := s.repo.Create(ctx, rec)
		s.metrics.ObserveAuditWrite(err)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"definition_id": rec.DefinitionID,
				"request_id":    rec.RequestID,
			}).WithError(err).Error("failed to record audit entry")
		}
	}()
}

// Wait blocks until every scheduled write has finished.
func (s *AsyncAuditSink) Wait() {
	s.wg.Wait()
}
