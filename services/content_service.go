package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/jsondoc"
	"github.com/blogem/content-api/metrics"
	"github.com/blogem/content-api/models"
	"github.com/blogem/content-api/repositories"
)

// ContentService applies path-addressed mutations to a stored document
type ContentService interface {
	Patch(ctx context.Context, id int64, patch *models.ContentPatch) (*models.Definition, error)
}

type contentService struct {
	defRepo repositories.DefinitionRepository
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewContentService creates a new content service
func NewContentService(defRepo repositories.DefinitionRepository, m *metrics.Metrics, log logrus.FieldLogger) ContentService {
	return &contentService{defRepo: defRepo, metrics: m, log: log}
}

// Patch reads the definition fresh, applies the mutation to a copy of its
// content, and writes the result back only when the mutation succeeded.
// A refused mutation leaves the stored document untouched.
func (s *contentService) Patch(ctx context.Context, id int64, patch *models.ContentPatch) (*models.Definition, error) {
	req, err := patch.MutationRequest()
	if err != nil {
		return nil, err
	}

	def, err := s.defRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := jsondoc.Apply(def.Content, req)
	label := string(req.Operation)
	if !req.Operation.Valid() {
		label = "unknown"
	}
	s.metrics.ObserveMutation(label, err)
	if err != nil {
		return nil, err
	}

	var at time.Time
	if at, err = s.defRepo.UpdateContent(ctx, id, updated); err != nil {
		return nil, err
	}
	def.Content = updated
	def.UpdatedAt = at

	s.log.WithFields(logrus.Fields{
		"definition_id": id,
		"operation":     req.Operation,
		"path":          req.Path,
	}).Info("content updated")
	return def, nil
}
