package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/blogem/content-api/jsondoc"
)

// Definition statuses. Only active definitions are dispatched.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Methods lists the HTTP methods a definition may be registered for.
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// Definition is a dynamic endpoint: a stored JSON document served at (Path, Method).
type Definition struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Method       string    `json:"method"`
	RequiresAuth bool      `json:"requires_auth"`
	Content      any       `json:"content"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Active reports whether the definition is eligible for dispatch.
func (d *Definition) Active() bool {
	return d.Status == StatusActive
}

// DefinitionSummary is a Definition without its content, used in listings.
type DefinitionSummary struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Method       string    `json:"method"`
	RequiresAuth bool      `json:"requires_auth"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary drops the content of d.
func (d *Definition) Summary() DefinitionSummary {
	return DefinitionSummary{
		ID:           d.ID,
		Name:         d.Name,
		Path:         d.Path,
		Method:       d.Method,
		RequiresAuth: d.RequiresAuth,
		Description:  d.Description,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// NormalizePath trims whitespace and a trailing slash. The root path is kept as "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// NormalizeMethod trims and upper-cases an HTTP method.
func NormalizeMethod(m string) string {
	return strings.ToUpper(strings.TrimSpace(m))
}

// DefinitionForm is the body of a create request. The document may be given
// either as any JSON value under "content" or as JSON text under "response_content".
type DefinitionForm struct {
	Name            string          `json:"name"`
	Path            string          `json:"path"`
	Method          string          `json:"method"`
	RequiresAuth    bool            `json:"requires_auth"`
	Content         json.RawMessage `json:"content"`
	ResponseContent *string         `json:"response_content"`
	Description     string          `json:"description"`
	Status          string          `json:"status"`
}

// Validate checks the form and returns the parsed document.
func (f *DefinitionForm) Validate() (any, ValidationErrors) {
	var errs ValidationErrors

	name := strings.TrimSpace(f.Name)
	if name == "" {
		errs.add("name", "is required")
	}
	if len(name) > 200 {
		errs.add("name", "must be less than 200 characters")
	}
	validatePath(&errs, f.Path, true)

	method := NormalizeMethod(f.Method)
	if method != "" && !slices.Contains(Methods, method) {
		errs.add("method", "must be one of "+strings.Join(Methods, ", "))
	}
	if f.Status != "" && f.Status != StatusActive && f.Status != StatusInactive {
		errs.add("status", "must be active or inactive")
	}

	doc, present, err := parseContent(f.Content, f.ResponseContent)
	switch {
	case err != nil:
		errs.add("content", err.Error())
	case !present:
		errs.add("content", "is required")
	}
	return doc, errs
}

// Definition builds the definition described by a validated form.
func (f *DefinitionForm) Definition(content any) *Definition {
	def := &Definition{
		Name:         strings.TrimSpace(f.Name),
		Path:         NormalizePath(f.Path),
		Method:       NormalizeMethod(f.Method),
		RequiresAuth: f.RequiresAuth,
		Content:      content,
		Description:  strings.TrimSpace(f.Description),
		Status:       f.Status,
	}
	if def.Method == "" {
		def.Method = "GET"
	}
	if def.Status == "" {
		def.Status = StatusActive
	}
	return def
}

// DefinitionUpdate is the body of a partial update. Nil fields are left unchanged.
type DefinitionUpdate struct {
	Name            *string         `json:"name"`
	Path            *string         `json:"path"`
	Method          *string         `json:"method"`
	RequiresAuth    *bool           `json:"requires_auth"`
	Content         json.RawMessage `json:"content"`
	ResponseContent *string         `json:"response_content"`
	Description     *string         `json:"description"`
	Status          *string         `json:"status"`
}

// Empty reports whether the update names no field at all.
func (u *DefinitionUpdate) Empty() bool {
	return u.Name == nil && u.Path == nil && u.Method == nil && u.RequiresAuth == nil &&
		len(u.Content) == 0 && u.ResponseContent == nil && u.Description == nil && u.Status == nil
}

// Validate checks the supplied fields and returns the parsed document, if any.
func (u *DefinitionUpdate) Validate() (content any, hasContent bool, errs ValidationErrors) {
	if u.Empty() {
		errs.add("", "at least one field must be provided")
		return nil, false, errs
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs.add("name", "must not be empty")
	}
	if u.Path != nil {
		validatePath(&errs, *u.Path, true)
	}
	if u.Method != nil && !slices.Contains(Methods, NormalizeMethod(*u.Method)) {
		errs.add("method", "must be one of "+strings.Join(Methods, ", "))
	}
	if u.Status != nil && *u.Status != StatusActive && *u.Status != StatusInactive {
		errs.add("status", "must be active or inactive")
	}

	content, hasContent, err := parseContent(u.Content, u.ResponseContent)
	if err != nil {
		errs.add("content", err.Error())
	}
	return content, hasContent, errs
}

// ApplyTo copies the supplied fields onto def.
func (u *DefinitionUpdate) ApplyTo(def *Definition, content any, hasContent bool) {
	if u.Name != nil {
		def.Name = strings.TrimSpace(*u.Name)
	}
	if u.Path != nil {
		def.Path = NormalizePath(*u.Path)
	}
	if u.Method != nil {
		def.Method = NormalizeMethod(*u.Method)
	}
	if u.RequiresAuth != nil {
		def.RequiresAuth = *u.RequiresAuth
	}
	if hasContent {
		def.Content = content
	}
	if u.Description != nil {
		def.Description = strings.TrimSpace(*u.Description)
	}
	if u.Status != nil {
		def.Status = *u.Status
	}
}

func validatePath(errs *ValidationErrors, path string, required bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		if required {
			errs.add("path", "is required")
		}
		return
	}
	if !strings.HasPrefix(path, "/") {
		errs.add("path", "must start with /")
	}
	if strings.ContainsAny(path, "?# ") {
		errs.add("path", "must not contain a query, fragment or spaces")
	}
}

// parseContent reads the document from whichever field carries it. "content"
// takes precedence over "response_content".
func parseContent(raw json.RawMessage, text *string) (any, bool, error) {
	if len(raw) > 0 {
		doc, err := jsondoc.Parse(string(raw))
		return doc, err == nil, err
	}
	if text == nil {
		return nil, false, nil
	}
	if strings.TrimSpace(*text) == "" {
		return nil, false, nil
	}
	doc, err := jsondoc.Parse(*text)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// DefinitionFilter narrows a management listing.
type DefinitionFilter struct {
	Paging
	Status string
	Method string
}

// Validate checks the filter values and paging bounds.
func (f *DefinitionFilter) Validate() ValidationErrors {
	errs := f.Paging.Validate()
	if f.Status != "" && f.Status != StatusActive && f.Status != StatusInactive {
		errs.add("status", "must be active or inactive")
	}
	if f.Method != "" && !slices.Contains(Methods, NormalizeMethod(f.Method)) {
		errs.add("method", "must be one of "+strings.Join(Methods, ", "))
	}
	return errs
}

// DefinitionPage is one page of a definition listing.
type DefinitionPage struct {
	APIs       []DefinitionSummary `json:"apis"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"totalPages"`
}

// ContentPatch is the body of a partial content update.
type ContentPatch struct {
	Operation string          `json:"operation"`
	Path      string          `json:"path"`
	Value     json.RawMessage `json:"value"`
}

// MutationRequest converts p into an engine request. An explicit JSON null
// value is kept as a present nil value.
func (p *ContentPatch) MutationRequest() (jsondoc.MutationRequest, error) {
	req := jsondoc.MutationRequest{
		Operation: jsondoc.Operation(strings.ToLower(strings.TrimSpace(p.Operation))),
		Path:      p.Path,
	}
	if len(p.Value) > 0 {
		v, err := jsondoc.Parse(string(p.Value))
		if err != nil {
			return req, ValidationError{Field: "value", Message: err.Error()}
		}
		req.Value, req.HasValue = v, true
	}
	return req, nil
}
