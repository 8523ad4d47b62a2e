package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/models"
	"github.com/blogem/content-api/services"
	"github.com/blogem/content-api/userctx"
)

// DefinitionController handles definition management requests
type DefinitionController struct {
	definitions services.DefinitionService
	content     services.ContentService
	log         logrus.FieldLogger
}

// NewDefinitionController creates a new definition controller
func NewDefinitionController(definitions services.DefinitionService, content services.ContentService, log logrus.FieldLogger) *DefinitionController {
	return &DefinitionController{definitions: definitions, content: content, log: log}
}

// List handles GET /api/external/custom-apis
func (c *DefinitionController) List(w http.ResponseWriter, r *http.Request) {
	paging, err := parsePaging(r)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	filter := models.DefinitionFilter{
		Paging: paging,
		Status: r.URL.Query().Get("status"),
		Method: r.URL.Query().Get("method"),
	}

	page, err := c.definitions.List(r.Context(), filter)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

// Get handles GET /api/external/custom-apis/{id}
func (c *DefinitionController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := definitionID(r)
	if err != nil {
		writeError(w, c.log, err)
		return
	}

	def, err := c.definitions.Get(r.Context(), id)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", def)
}

// Create handles POST /api/external/custom-apis
func (c *DefinitionController) Create(w http.ResponseWriter, r *http.Request) {
	var form models.DefinitionForm
	if err := decodeBody(r, &form); err != nil {
		writeError(w, c.log, err)
		return
	}

	def, err := c.definitions.Create(r.Context(), &form)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	c.audit(r, def.ID).Info("definition created")
	writeSuccess(w, http.StatusCreated, "custom API created", def)
}

// Update handles PUT /api/external/custom-apis/{id}
func (c *DefinitionController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := definitionID(r)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	var upd models.DefinitionUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, c.log, err)
		return
	}

	def, err := c.definitions.Update(r.Context(), id, &upd)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	c.audit(r, id).Info("definition updated")
	writeSuccess(w, http.StatusOK, "custom API updated", def)
}

// Delete handles DELETE /api/external/custom-apis/{id}
func (c *DefinitionController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := definitionID(r)
	if err != nil {
		writeError(w, c.log, err)
		return
	}

	if err := c.definitions.Delete(r.Context(), id); err != nil {
		writeError(w, c.log, err)
		return
	}
	c.audit(r, id).Info("definition deleted")
	writeSuccess(w, http.StatusOK, "custom API deleted", nil)
}

// PatchContent handles PATCH /api/external/custom-apis/{id}/content
func (c *DefinitionController) PatchContent(w http.ResponseWriter, r *http.Request) {
	id, err := definitionID(r)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	var patch models.ContentPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, c.log, err)
		return
	}

	def, err := c.content.Patch(r.Context(), id, &patch)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "content updated", def)
}

// Logs handles GET /api/external/custom-apis/{id}/logs
func (c *DefinitionController) Logs(w http.ResponseWriter, r *http.Request) {
	id, err := definitionID(r)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	paging, err := parsePaging(r)
	if err != nil {
		writeError(w, c.log, err)
		return
	}

	page, err := c.definitions.Logs(r.Context(), id, paging)
	if err != nil {
		writeError(w, c.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

func (c *DefinitionController) audit(r *http.Request, id int64) *logrus.Entry {
	return c.log.WithFields(logrus.Fields{
		"definition_id": id,
		"operator":      userctx.OperatorName(r.Context()),
		"request_id":    userctx.GetRequestID(r.Context()),
	})
}

func definitionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, models.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

// parsePaging reads page and limit. Absent values take their defaults later.
func parsePaging(r *http.Request) (models.Paging, error) {
	var (
		p    models.Paging
		errs models.ValidationErrors
	)
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, models.ValidationError{Field: "page", Message: "must be a positive integer"})
		}
		p.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > models.MaxPageLimit {
			errs = append(errs, models.ValidationError{Field: "limit", Message: "must be between 1 and 100"})
		}
		p.Limit = n
	}
	return p, errs.Err()
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return models.ValidationError{Field: "body", Message: "request body is required"}
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}
