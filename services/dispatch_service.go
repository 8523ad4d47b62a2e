package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/jsondoc"
	"github.com/blogem/content-api/metrics"
	"github.com/blogem/content-api/models"
	"github.com/blogem/content-api/repositories"
)

// DispatchState is the terminal state of one dispatch.
type DispatchState string

const (
	// StateNoMatch means no active definition serves the route; the caller
	// should hand the request to its next handler.
	StateNoMatch DispatchState = "no_match"
	// StateAuthFailed means the definition requires auth and no channel accepted.
	StateAuthFailed DispatchState = "auth_failed"
	// StateBodyRejected means a definition matched but the request body was
	// too large or could not be read.
	StateBodyRejected DispatchState = "body_rejected"
	// StateServed means the rendered document is ready to be written.
	StateServed DispatchState = "served"
)

// ErrBodyTooLarge reports a request body over the configured limit.
var ErrBodyTooLarge = errors.New("request body too large")

// Query parameters that steer the response instead of filtering it.
const (
	QueryPage     = "page"
	QueryPageSize = "pageSize"
	QueryFormat   = "format"
	QueryToken    = "token"
)

// DispatchRequest is an inbound request to a dynamic endpoint.
type DispatchRequest struct {
	RequestID string
	Method    string
	// Path is the full request path; Route is the part after the dispatch prefix.
	Path      string
	Route     string
	Query     url.Values
	Body      any
	// BodyErr is set when the body could not be buffered. It only matters
	// once a definition matches.
	BodyErr   error
	Headers   map[string]any
	IPAddress string
	UserAgent string
	// Authenticate runs the auth gate. It is only called for definitions that
	// require auth; a nil func rejects.
	Authenticate func() bool
}

// DispatchResult is the outcome of a dispatch.
type DispatchResult struct {
	State      DispatchState
	Status     int
	Body       any
	Definition *models.Definition
}

// DispatchService runs MATCH, AUTH, RENDER and AUDIT for dynamic endpoints.
type DispatchService interface {
	Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResult, error)
}

type dispatchService struct {
	defRepo repositories.DefinitionRepository
	audit   AuditSink
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	debug   bool
	now     func() time.Time
}

// NewDispatchService creates a new dispatch service. With debug set, every
// match and auth decision is logged at info level.
func NewDispatchService(defRepo repositories.DefinitionRepository, audit AuditSink, m *metrics.Metrics, log logrus.FieldLogger, debug bool) DispatchService {
	return &dispatchService{
		defRepo: defRepo,
		audit:   audit,
		metrics: m,
		log:     log,
		debug:   debug,
		now:     time.Now,
	}
}

// Dispatch looks up the active definition for the request's route and method.
// Storage failures during MATCH are returned; nothing is audited for them
// since no definition is known.
func (s *dispatchService) Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResult, error) {
	start := s.now()
	route := models.NormalizePath(req.Route)
	if route == "" {
		route = "/"
	}
	method := models.NormalizeMethod(req.Method)

	// MATCH
	def, err := s.defRepo.GetActiveByRoute(ctx, route, method)
	if errors.Is(err, models.ErrNotFound) {
		s.metrics.ObserveDispatch(metrics.OutcomeNoMatch, s.now().Sub(start))
		return &DispatchResult{State: StateNoMatch}, nil
	}
	if err != nil {
		s.metrics.ObserveDispatch(metrics.OutcomeError, s.now().Sub(start))
		return nil, err
	}
	entry := s.log.WithFields(logrus.Fields{
		"definition_id": def.ID,
		"route":         route,
		"method":        method,
		"request_id":    req.RequestID,
	})
	if s.debug {
		entry.WithField("requires_auth", def.RequiresAuth).Info("dispatch matched")
	}

	// AUTH
	if def.RequiresAuth && (req.Authenticate == nil || !req.Authenticate()) {
		if s.debug {
			entry.Info("dispatch rejected by auth gate")
		}
		result := &DispatchResult{
			State:      StateAuthFailed,
			Status:     http.StatusUnauthorized,
			Definition: def,
			Body: map[string]any{
				"success": false,
				"message": "authentication required",
				"code":    "UNAUTHORIZED",
			},
		}
		s.record(ctx, req, result, start, "authentication required")
		s.metrics.ObserveDispatch(metrics.OutcomeAuthFailed, s.now().Sub(start))
		return result, nil
	}

	if req.BodyErr != nil {
		result := bodyRejected(def, req.BodyErr)
		entry.WithError(req.BodyErr).Warn("dispatch rejected request body")
		s.record(ctx, req, result, start, req.BodyErr.Error())
		s.metrics.ObserveDispatch(metrics.OutcomeBodyRejected, s.now().Sub(start))
		return result, nil
	}

	// RENDER
	query := QueryDocument(req.Query)
	body := req.Body
	if body == nil {
		body = map[string]any{}
	}
	rendered := jsondoc.Render(def.Content, jsondoc.RequestInfo{
		Method: req.Method,
		Path:   req.Path,
		Query:  query,
		Body:   body,
		Now:    start,
	})
	rendered = jsondoc.View(rendered, Criteria(req.Query), PageRequest(req.Query))

	result := &DispatchResult{
		State:      StateServed,
		Status:     http.StatusOK,
		Body:       rendered,
		Definition: def,
	}

	// AUDIT
	s.record(ctx, req, result, start, "")
	s.metrics.ObserveDispatch(metrics.OutcomeServed, s.now().Sub(start))
	return result, nil
}

func bodyRejected(def *models.Definition, err error) *DispatchResult {
	status, message := http.StatusBadRequest, "unreadable request body"
	if errors.Is(err, ErrBodyTooLarge) {
		status, message = http.StatusRequestEntityTooLarge, ErrBodyTooLarge.Error()
	}
	return &DispatchResult{
		State:      StateBodyRejected,
		Status:     status,
		Definition: def,
		Body: map[string]any{
			"success": false,
			"message": message,
			"code":    "VALIDATION_ERROR",
		},
	}
}

func (s *dispatchService) record(ctx context.Context, req *DispatchRequest, result *DispatchResult, start time.Time, errMsg string) {
	body := req.Body
	if body == nil {
		body = map[string]any{}
	}
	s.audit.Record(ctx, &models.AuditRecord{
		DefinitionID:   result.Definition.ID,
		RequestID:      req.RequestID,
		RequestMethod:  models.NormalizeMethod(req.Method),
		RequestPath:    req.Path,
		RequestHeaders: jsondoc.Canonical(req.Headers),
		RequestQuery:   jsondoc.Canonical(QueryDocument(req.Query)),
		RequestBody:    jsondoc.Canonical(body),
		ResponseStatus: result.Status,
		ResponseBody:   jsondoc.Canonical(result.Body),
		ResponseTimeMs: s.now().Sub(start).Milliseconds(),
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		ErrorMessage:   errMsg,
		CreatedAt:      start,
	})
}

// QueryDocument turns query parameters into a document: a single value
// becomes a string, repeated values become an array of strings.
func QueryDocument(q url.Values) map[string]any {
	doc := make(map[string]any, len(q))
	for key, values := range q {
		switch len(values) {
		case 0:
		case 1:
			doc[key] = values[0]
		default:
			items := make([]any, len(values))
			for i, v := range values {
				items[i] = v
			}
			doc[key] = items
		}
	}
	return doc
}

// Criteria extracts filter criteria from query parameters. Paging controls,
// the token credential, and empty values are skipped. A repeated parameter
// filters on its first value.
func Criteria(q url.Values) jsondoc.Criteria {
	c := jsondoc.Criteria{}
	for key := range q {
		switch key {
		case QueryPage, QueryPageSize, QueryFormat, QueryToken:
			continue
		}
		if v := q.Get(key); v != "" {
			c[key] = v
		}
	}
	return c
}

// PageRequest extracts pagination from query parameters. It is invalid, and
// so skipped by the engine, unless page and pageSize are both positive integers.
func PageRequest(q url.Values) jsondoc.PageRequest {
	page, _ := strconv.Atoi(q.Get(QueryPage))
	size, _ := strconv.Atoi(q.Get(QueryPageSize))
	format := jsondoc.FormatMetadata
	if q.Get(QueryFormat) == string(jsondoc.FormatArray) {
		format = jsondoc.FormatArray
	}
	return jsondoc.PageRequest{Page: page, PageSize: size, Format: format}
}
