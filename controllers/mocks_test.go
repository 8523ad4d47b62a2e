package controllers

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/blogem/content-api/authenticator"
	"github.com/blogem/content-api/middleware"
	"github.com/blogem/content-api/models"
	"github.com/blogem/content-api/services"
)

type mockDefinitionService struct{ mock.Mock }

func (m *mockDefinitionService) List(ctx context.Context, filter models.DefinitionFilter) (*models.DefinitionPage, error) {
	args := m.Called(ctx, filter)
	page, _ := args.Get(0).(*models.DefinitionPage)
	return page, args.Error(1)
}

func (m *mockDefinitionService) Get(ctx context.Context, id int64) (*models.Definition, error) {
	args := m.Called(ctx, id)
	def, _ := args.Get(0).(*models.Definition)
	return def, args.Error(1)
}

func (m *mockDefinitionService) Create(ctx context.Context, form *models.DefinitionForm) (*models.Definition, error) {
	args := m.Called(ctx, form)
	def, _ := args.Get(0).(*models.Definition)
	return def, args.Error(1)
}

func (m *mockDefinitionService) Update(ctx context.Context, id int64, upd *models.DefinitionUpdate) (*models.Definition, error) {
	args := m.Called(ctx, id, upd)
	def, _ := args.Get(0).(*models.Definition)
	return def, args.Error(1)
}

func (m *mockDefinitionService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDefinitionService) Logs(ctx context.Context, id int64, paging models.Paging) (*models.AuditPage, error) {
	args := m.Called(ctx, id, paging)
	page, _ := args.Get(0).(*models.AuditPage)
	return page, args.Error(1)
}

type mockContentService struct{ mock.Mock }

func (m *mockContentService) Patch(ctx context.Context, id int64, patch *models.ContentPatch) (*models.Definition, error) {
	args := m.Called(ctx, id, patch)
	def, _ := args.Get(0).(*models.Definition)
	return def, args.Error(1)
}

type mockDispatchService struct{ mock.Mock }

func (m *mockDispatchService) Dispatch(ctx context.Context, req *services.DispatchRequest) (*services.DispatchResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*services.DispatchResult)
	return result, args.Error(1)
}

type fakeProvider struct {
	claims   authenticator.Claims
	exchange error
}

func (p *fakeProvider) GetAuthURL(state string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*authenticator.Token, error) {
	if p.exchange != nil {
		return nil, p.exchange
	}
	return &authenticator.Token{AccessToken: "at-" + code, IDToken: "id"}, nil
}

func (p *fakeProvider) GetClaims(context.Context, *authenticator.Token) (authenticator.Claims, error) {
	return p.claims, nil
}

type memorySession map[interface{}]interface{}

func (s memorySession) Get(key interface{}) interface{}    { return s[key] }
func (s memorySession) Set(key, value interface{}) error { s[key] = value; return nil }
func (s memorySession) Delete(key interface{}) error     { delete(s, key); return nil }

func sessionLookup(sess memorySession) func(*http.Request) middleware.SessionStore {
	return func(*http.Request) middleware.SessionStore { return sess }
}
