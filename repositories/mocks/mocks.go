// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/blogem/content-api/models"
)

// MockDefinitionRepository is a mock of repositories.DefinitionRepository.
type MockDefinitionRepository struct {
	mock.Mock
}

// NewMockDefinitionRepository creates a mock that asserts its expectations on cleanup.
func NewMockDefinitionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDefinitionRepository {
	m := &MockDefinitionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func definitionOrNil(v any) *models.Definition {
	if v == nil {
		return nil
	}
	return v.(*models.Definition)
}

func (m *MockDefinitionRepository) GetByID(ctx context.Context, id int64) (*models.Definition, error) {
	args := m.Called(ctx, id)
	return definitionOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDefinitionRepository) GetActiveByRoute(ctx context.Context, path, method string) (*models.Definition, error) {
	args := m.Called(ctx, path, method)
	return definitionOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDefinitionRepository) ExistsRoute(ctx context.Context, path, method string, excludeID int64) (bool, error) {
	args := m.Called(ctx, path, method, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDefinitionRepository) List(ctx context.Context, filter models.DefinitionFilter) ([]models.Definition, int, error) {
	args := m.Called(ctx, filter)
	defs, _ := args.Get(0).([]models.Definition)
	return defs, args.Int(1), args.Error(2)
}

func (m *MockDefinitionRepository) Create(ctx context.Context, def *models.Definition) error {
	return m.Called(ctx, def).Error(0)
}

func (m *MockDefinitionRepository) Update(ctx context.Context, def *models.Definition) error {
	return m.Called(ctx, def).Error(0)
}

func (m *MockDefinitionRepository) UpdateContent(ctx context.Context, id int64, content any) (time.Time, error) {
	args := m.Called(ctx, id, content)
	at, _ := args.Get(0).(time.Time)
	return at, args.Error(1)
}

func (m *MockDefinitionRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockAuditRepository is a mock of repositories.AuditRepository.
type MockAuditRepository struct {
	mock.Mock
}

// NewMockAuditRepository creates a mock that asserts its expectations on cleanup.
func NewMockAuditRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAuditRepository {
	m := &MockAuditRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditRepository) Create(ctx context.Context, rec *models.AuditRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockAuditRepository) ListByDefinition(ctx context.Context, apiID int64, paging models.Paging) ([]models.AuditRecord, int, error) {
	args := m.Called(ctx, apiID, paging)
	records, _ := args.Get(0).([]models.AuditRecord)
	return records, args.Int(1), args.Error(2)
}

func (m *MockAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}
