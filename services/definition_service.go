package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/models"
	"github.com/blogem/content-api/repositories"
)

// DefinitionService defines management of dynamic endpoint definitions
type DefinitionService interface {
	List(ctx context.Context, filter models.DefinitionFilter) (*models.DefinitionPage, error)
	Get(ctx context.Context, id int64) (*models.Definition, error)
	Create(ctx context.Context, form *models.DefinitionForm) (*models.Definition, error)
	Update(ctx context.Context, id int64, upd *models.DefinitionUpdate) (*models.Definition, error)
	Delete(ctx context.Context, id int64) error
	Logs(ctx context.Context, id int64, paging models.Paging) (*models.AuditPage, error)
}

// definitionService implements DefinitionService interface
type definitionService struct {
	defRepo   repositories.DefinitionRepository
	auditRepo repositories.AuditRepository
	log       logrus.FieldLogger
}

// NewDefinitionService creates a new definition service
func NewDefinitionService(defRepo repositories.DefinitionRepository, auditRepo repositories.AuditRepository, log logrus.FieldLogger) DefinitionService {
	return &definitionService{defRepo: defRepo, auditRepo: auditRepo, log: log}
}

// List returns one page of definitions without their content
func (s *definitionService) List(ctx context.Context, filter models.DefinitionFilter) (*models.DefinitionPage, error) {
	filter.Normalize()
	if err := filter.Validate().Err(); err != nil {
		return nil, err
	}

	defs, total, err := s.defRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := &models.DefinitionPage{
		APIs:       make([]models.DefinitionSummary, 0, len(defs)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: models.TotalPages(total, filter.Limit),
	}
	for i := range defs {
		page.APIs = append(page.APIs, defs[i].Summary())
	}
	return page, nil
}

// Get retrieves a definition with its content
func (s *definitionService) Get(ctx context.Context, id int64) (*models.Definition, error) {
	if id <= 0 {
		return nil, fmt.Errorf("definition %d: %w", id, models.ErrNotFound)
	}
	return s.defRepo.GetByID(ctx, id)
}

// Create validates the form and stores a new definition. The (path, method)
// pair must be free among all definitions, active or not.
func (s *definitionService) Create(ctx context.Context, form *models.DefinitionForm) (*models.Definition, error) {
	content, errs := form.Validate()
	if err := errs.Err(); err != nil {
		return nil, err
	}
	def := form.Definition(content)

	taken, err := s.defRepo.ExistsRoute(ctx, def.Path, def.Method, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%s %s: %w", def.Method, def.Path, models.ErrConflict)
	}

	if err := s.defRepo.Create(ctx, def); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"definition_id": def.ID,
		"path":          def.Path,
		"method":        def.Method,
	}).Info("definition created")
	return def, nil
}

// Update applies a partial update, re-checking the route against other definitions
func (s *definitionService) Update(ctx context.Context, id int64, upd *models.DefinitionUpdate) (*models.Definition, error) {
	content, hasContent, errs := upd.Validate()
	if err := errs.Err(); err != nil {
		return nil, err
	}

	def, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPath, oldMethod := def.Path, def.Method
	upd.ApplyTo(def, content, hasContent)

	if def.Path != oldPath || def.Method != oldMethod {
		taken, err := s.defRepo.ExistsRoute(ctx, def.Path, def.Method, def.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%s %s: %w", def.Method, def.Path, models.ErrConflict)
		}
	}

	if err := s.defRepo.Update(ctx, def); err != nil {
		return nil, err
	}

	s.log.WithField("definition_id", def.ID).Info("definition updated")
	return def, nil
}

// Delete removes a definition; its audit records stay behind
func (s *definitionService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("definition %d: %w", id, models.ErrNotFound)
	}
	if err := s.defRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("definition_id", id).Info("definition deleted")
	return nil
}

// Logs lists the audit records of an existing definition, newest first
func (s *definitionService) Logs(ctx context.Context, id int64, paging models.Paging) (*models.AuditPage, error) {
	paging.Normalize()
	if err := paging.Validate().Err(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	records, total, err := s.auditRepo.ListByDefinition(ctx, id, paging)
	if err != nil {
		return nil, err
	}

	page := &models.AuditPage{
		Logs:       make([]models.AuditLogView, 0, len(records)),
		Total:      total,
		Page:       paging.Page,
		Limit:      paging.Limit,
		TotalPages: models.TotalPages(total, paging.Limit),
	}
	for i := range records {
		page.Logs = append(page.Logs, records[i].View())
	}
	return page, nil
}
