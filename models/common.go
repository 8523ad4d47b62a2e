package models

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a definition id or route does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a (path, method) pair is already taken.
	ErrConflict = errors.New("path and method combination already exists")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// HasErrors returns true if there are validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// GetMessages returns all error messages as a slice of strings
func (ve ValidationErrors) GetMessages() []string {
	messages := make([]string, len(ve))
	for i, err := range ve {
		messages[i] = err.Error()
	}
	return messages
}

func (ve ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(ve.GetMessages(), ", ")
}

// Err returns ve as an error, or nil when there is nothing to report.
func (ve ValidationErrors) Err() error {
	if !ve.HasErrors() {
		return nil
	}
	return ve
}

func (ve *ValidationErrors) add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// Paging defaults shared by the management listings.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Paging is a 1-based page/limit pair for management listings.
type Paging struct {
	Page  int
	Limit int
}

// Normalize fills zero values with defaults.
func (p *Paging) Normalize() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
}

// Validate checks the page and limit bounds.
func (p Paging) Validate() ValidationErrors {
	var errs ValidationErrors
	if p.Page < 1 {
		errs.add("page", "must be a positive integer")
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		errs.add("limit", "must be between 1 and 100")
	}
	return errs
}

// Offset returns the number of rows skipped before the page.
func (p Paging) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns the number of pages needed to show total rows.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
