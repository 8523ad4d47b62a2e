package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogem/content-api/database"
	"github.com/blogem/content-api/jsondoc"
	"github.com/blogem/content-api/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	log, _ := test.NewNullLogger()

	db, err := database.InitializeDatabase(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err, "failed to initialize test database")
	t.Cleanup(func() { db.Close() })

	return db
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newDefinition(path, method string) *models.Definition {
	return &models.Definition{
		Name:    "Menu " + path,
		Path:    path,
		Method:  method,
		Content: map[string]any{"data": []any{int64(1), int64(2)}},
		Status:  models.StatusActive,
	}
}

func TestDefinitionRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := &definitionRepository{db: db, now: fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))}

	def := newDefinition("/menu", "GET")
	def.RequiresAuth = true
	require.NoError(t, repo.Create(ctx, def))
	assert.NotZero(t, def.ID)
	assert.False(t, def.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "Menu /menu", got.Name)
	assert.True(t, got.RequiresAuth)
	assert.JSONEq(t, `{"data":[1,2]}`, jsondoc.Canonical(got.Content))
	assert.True(t, got.CreatedAt.Equal(def.CreatedAt))

	matched, err := repo.GetActiveByRoute(ctx, "/menu", "GET")
	require.NoError(t, err)
	assert.Equal(t, def.ID, matched.ID)

	_, err = repo.GetActiveByRoute(ctx, "/menu", "POST")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Duplicate (path, method) is rejected regardless of status
	dup := newDefinition("/menu", "GET")
	dup.Status = models.StatusInactive
	assert.ErrorIs(t, repo.Create(ctx, dup), models.ErrConflict)

	exists, err := repo.ExistsRoute(ctx, "/menu", "GET", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsRoute(ctx, "/menu", "GET", def.ID)
	require.NoError(t, err)
	assert.False(t, exists, "a definition never conflicts with itself")

	// Inactive definitions are not matched
	def.Status = models.StatusInactive
	require.NoError(t, repo.Update(ctx, def))
	_, err = repo.GetActiveByRoute(ctx, "/menu", "GET")
	assert.ErrorIs(t, err, models.ErrNotFound)

	updatedAt, err := repo.UpdateContent(ctx, def.ID, []any{"replaced"})
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `["replaced"]`, jsondoc.Canonical(got.Content))
	assert.True(t, got.UpdatedAt.Equal(updatedAt))
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	require.NoError(t, repo.Delete(ctx, def.ID))
	_, err = repo.GetByID(ctx, def.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, def.ID), models.ErrNotFound)
	_, err = repo.UpdateContent(ctx, def.ID, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDefinitionRepositoryUpdateConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewDefinitionRepository(setupTestDB(t))

	first := newDefinition("/a", "GET")
	second := newDefinition("/b", "GET")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	second.Path = "/a"
	assert.ErrorIs(t, repo.Update(ctx, second), models.ErrConflict)
}

func TestDefinitionRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := &definitionRepository{db: setupTestDB(t), now: fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))}

	for i, route := range []struct{ path, method, status string }{
		{"/a", "GET", models.StatusActive},
		{"/b", "POST", models.StatusActive},
		{"/c", "GET", models.StatusInactive},
		{"/d", "GET", models.StatusActive},
	} {
		def := newDefinition(route.path, route.method)
		def.Status = route.status
		require.NoError(t, repo.Create(ctx, def), i)
	}

	defs, total, err := repo.List(ctx, models.DefinitionFilter{Paging: models.Paging{Page: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, defs, 2)
	assert.Equal(t, "/d", defs[0].Path, "newest first")
	assert.Equal(t, "/c", defs[1].Path)
	assert.Nil(t, defs[0].Content, "listing omits content")

	defs, total, err = repo.List(ctx, models.DefinitionFilter{
		Paging: models.Paging{Page: 1, Limit: 10},
		Status: models.StatusActive,
		Method: "get",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, defs, 2)

	defs, total, err = repo.List(ctx, models.DefinitionFilter{Paging: models.Paging{Page: 3, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, defs)
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(setupTestDB(t))
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := &models.AuditRecord{
			DefinitionID:   1,
			RequestID:      "req",
			RequestMethod:  "GET",
			RequestPath:    "/api/custom/menu",
			RequestHeaders: `{"x-api-token":"***"}`,
			ResponseStatus: 200,
			ResponseBody:   `{"ok":true}`,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Create(ctx, rec))
		assert.NotZero(t, rec.ID)
	}
	require.NoError(t, repo.Create(ctx, &models.AuditRecord{DefinitionID: 2, RequestMethod: "GET", RequestPath: "/x", ResponseStatus: 401, CreatedAt: base}))

	records, total, err := repo.ListByDefinition(ctx, 1, models.Paging{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.True(t, records[0].CreatedAt.Equal(base.Add(2*time.Hour)), "newest first")
	assert.Equal(t, `{"x-api-token":"***"}`, records[0].RequestHeaders)

	pruned, err := repo.DeleteOlderThan(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), pruned, "pruning spans every definition")

	_, total, err = repo.ListByDefinition(ctx, 1, models.Paging{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDefinitionRepositoryStorageFailures(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDefinitionRepository(db)

	mock.ExpectQuery("SELECT .* FROM custom_apis").WillReturnError(errors.New("disk I/O error"))
	_, err = repo.GetActiveByRoute(ctx, "/menu", "GET")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), "disk I/O error")

	mock.ExpectExec("INSERT INTO custom_apis").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	assert.ErrorIs(t, repo.Create(ctx, newDefinition("/menu", "GET")), models.ErrConflict)

	mock.ExpectExec("UPDATE custom_apis SET content").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = repo.UpdateContent(ctx, 9, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryStorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO custom_api_logs").WillReturnError(errors.New("database is locked"))

	err = NewAuditRepository(db).Create(context.Background(), &models.AuditRecord{DefinitionID: 1})
	assert.ErrorContains(t, err, "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
