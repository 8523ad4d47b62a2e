package repositories

import (
	"database/sql"
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	Definition DefinitionRepository
	Audit      AuditRepository
}

// NewRepositories creates and initializes all repositories
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Definition: NewDefinitionRepository(db),
		Audit:      NewAuditRepository(db),
	}
}
