package controllers

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/jsondoc"
	"github.com/blogem/content-api/middleware"
	"github.com/blogem/content-api/services"
	"github.com/blogem/content-api/userctx"
)

// DispatchController serves dynamic endpoints mounted under a prefix.
type DispatchController struct {
	dispatch services.DispatchService
	gate     *middleware.Gate
	prefix   string
	maxBody  int64
	log      logrus.FieldLogger
}

// NewDispatchController creates a dispatch controller for routes under prefix.
// Request bodies larger than maxBody bytes are refused.
func NewDispatchController(dispatch services.DispatchService, gate *middleware.Gate, prefix string, maxBody int64, log logrus.FieldLogger) *DispatchController {
	return &DispatchController{
		dispatch: dispatch,
		gate:     gate,
		prefix:   strings.TrimSuffix(prefix, "/"),
		maxBody:  maxBody,
		log:      log,
	}
}

// Handler wraps next: requests under the prefix that match an active
// definition are served here, everything else is handed to next.
func (c *DispatchController) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := c.route(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		raw, bodyErr := c.bufferBody(r)
		var body any
		if bodyErr == nil {
			body = c.decodeBody(r, raw)
		}

		req := &services.DispatchRequest{
			RequestID: userctx.GetRequestID(r.Context()),
			Method:    r.Method,
			Path:      r.URL.Path,
			Route:     route,
			Query:     r.URL.Query(),
			Body:      body,
			BodyErr:   bodyErr,
			Headers:   middleware.MaskHeaders(r.Header),
			IPAddress: middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
			Authenticate: func() bool {
				_, ok := c.gate.Authenticate(r)
				return ok
			},
		}

		result, err := c.dispatch.Dispatch(r.Context(), req)
		if err != nil {
			writeError(w, c.log.WithField("request_id", req.RequestID), err)
			return
		}
		if result.State == services.StateNoMatch {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.Status)
		_, _ = io.WriteString(w, jsondoc.Canonical(result.Body))
	})
}

// route returns the part of path after the prefix. Paths that only share a
// leading string with the prefix, like /api/customers, are not dynamic routes.
func (c *DispatchController) route(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, c.prefix)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return "", false
	}
	return rest, true
}

// bufferBody reads up to maxBody bytes of the request body and puts them
// back in front of whatever is left, so a handler further down the chain
// still sees the full body. Bodies over the limit report ErrBodyTooLarge.
func (c *DispatchController) bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, c.maxBody+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), r.Body), r.Body}
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		return nil, services.ErrBodyTooLarge
	}
	return raw, nil
}

// decodeBody turns the raw body into a document. Form posts become an
// object of their fields; text that is not JSON is kept as a string.
func (c *DispatchController) decodeBody(r *http.Request, raw []byte) any {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return string(raw)
		}
		return services.QueryDocument(form)
	}
	if doc, err := jsondoc.Parse(string(raw)); err == nil {
		return doc
	}
	return string(raw)
}
