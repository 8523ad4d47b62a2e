package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/jsondoc"
	"github.com/blogem/content-api/models"
)

// Error codes carried in the response envelope.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeDuplicatePath   = "DUPLICATE_PATH"
	CodeNotFound        = "NOT_FOUND"
	CodeOperationFailed = "OPERATION_FAILED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeServerError     = "SERVER_ERROR"
)

// envelope is the body of every management response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string, data any) {
	writeJSON(w, status, envelope{Success: false, Message: message, Code: code, Data: data})
}

// writeError maps err onto the error taxonomy. Anything unrecognised is a
// server error: it is logged and its text is not exposed.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var (
		verrs models.ValidationErrors
		verr  models.ValidationError
	)
	switch {
	case errors.As(err, &verrs):
		writeFailure(w, http.StatusBadRequest, CodeValidation, err.Error(), map[string]any{"errors": verrs})
	case errors.As(err, &verr):
		writeFailure(w, http.StatusBadRequest, CodeValidation, err.Error(), map[string]any{"errors": []models.ValidationError{verr}})
	case errors.Is(err, jsondoc.ErrInvalidRequest):
		writeFailure(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.Is(err, models.ErrConflict):
		writeFailure(w, http.StatusConflict, CodeDuplicatePath, err.Error(), nil)
	case errors.Is(err, models.ErrNotFound):
		writeFailure(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, jsondoc.ErrNotApplicable):
		writeFailure(w, http.StatusUnprocessableEntity, CodeOperationFailed, err.Error(), nil)
	default:
		log.WithError(err).Error("request failed")
		writeFailure(w, http.StatusInternalServerError, CodeServerError, "internal server error", nil)
	}
}

// NotFound is the JSON handler for routes nothing serves, including dynamic
// routes without an active definition.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusNotFound, CodeNotFound, "no route for "+r.Method+" "+r.URL.Path, nil)
}
