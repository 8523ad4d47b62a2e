package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogem/content-api/userctx"
)

type memorySession map[interface{}]interface{}

func (s memorySession) Get(key interface{}) interface{}    { return s[key] }
func (s memorySession) Set(key, value interface{}) error { s[key] = value; return nil }
func (s memorySession) Delete(key interface{}) error     { delete(s, key); return nil }

func sessionChannel(sess SessionStore, now time.Time, ttl time.Duration) *SessionChannel {
	return &SessionChannel{
		ttl:    ttl,
		now:    func() time.Time { return now },
		lookup: func(*http.Request) SessionStore { return sess },
	}
}

func TestTokenChannel(t *testing.T) {
	ch := NewTokenChannel("s3cret")

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  bool
	}{
		{"header", func(r *http.Request) { r.Header.Set("X-API-Token", "s3cret") }, true},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") }, true},
		{"bearer any case", func(r *http.Request) { r.Header.Set("Authorization", "bearer s3cret") }, true},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=s3cret" }, true},
		{"wrong token", func(r *http.Request) { r.Header.Set("X-API-Token", "nope") }, false},
		{"basic auth is not a token", func(r *http.Request) { r.Header.Set("Authorization", "Basic s3cret") }, false},
		{"no credentials", func(*http.Request) {}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/custom/x", nil)
			tt.setup(r)
			_, ok := ch.Authenticate(r)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTokenChannel_EmptyTokenNeverAuthenticates(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?token=", nil)
	r.Header.Set("X-API-Token", "")

	_, ok := NewTokenChannel("").Authenticate(r)

	assert.False(t, ok)
}

func TestSessionChannel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	t.Run("fresh session", func(t *testing.T) {
		sess := memorySession{SessionUserID: "auth0|1", SessionLoginAt: now.Add(-30 * time.Minute).Unix()}
		subject, ok := sessionChannel(sess, now, time.Hour).Authenticate(r)
		assert.True(t, ok)
		assert.Equal(t, "auth0|1", subject)
	})

	t.Run("expired session is cleared", func(t *testing.T) {
		sess := memorySession{SessionUserID: "auth0|1", SessionNickname: "ann", SessionLoginAt: now.Add(-2 * time.Hour).Unix()}
		_, ok := sessionChannel(sess, now, time.Hour).Authenticate(r)
		assert.False(t, ok)
		assert.Empty(t, sess)
	})

	t.Run("anonymous session", func(t *testing.T) {
		_, ok := sessionChannel(memorySession{}, now, time.Hour).Authenticate(r)
		assert.False(t, ok)
	})

	t.Run("no session middleware", func(t *testing.T) {
		_, ok := sessionChannel(nil, now, time.Hour).Authenticate(r)
		assert.False(t, ok)
	})
}

func TestSessionFromRequest_WithoutMiddleware(t *testing.T) {
	assert.Nil(t, SessionFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestGate_EitherChannelAccepts(t *testing.T) {
	log, hook := test.NewNullLogger()
	now := time.Now()
	sess := memorySession{SessionUserID: "auth0|7", SessionLoginAt: now.Unix()}
	gate := NewGate(log, true, NewTokenChannel("s3cret"), sessionChannel(sess, now, time.Hour))

	op, ok := gate.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.Equal(t, userctx.Operator{Channel: "session", Subject: "auth0|7"}, op)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "session", hook.LastEntry().Data["channel"])
}

func TestRequireAuth(t *testing.T) {
	log, _ := test.NewNullLogger()
	gate := NewGate(log, false, NewTokenChannel("s3cret"))
	handler := RequireAuth(gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := userctx.GetOperator(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "token", op.Channel)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/external/custom-apis", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"authentication required","code":"UNAUTHORIZED"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/external/custom-apis", nil)
	req.Header.Set("X-API-Token", "s3cret")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:5555"
	assert.Equal(t, "::1", ClientIP(r))

	r.Header.Set("X-Real-IP", "10.1.1.1")
	assert.Equal(t, "10.1.1.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestMaskHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-API-Token", "s3cret")
	h.Set("Authorization", "Bearer s3cret")
	h.Set("Cookie", "session=abc")
	h.Set("Accept", "application/json")
	h.Add("X-Tag", "a")
	h.Add("X-Tag", "b")

	got := MaskHeaders(h)

	assert.Equal(t, map[string]any{
		"x-api-token":   "***",
		"authorization": "Bearer ***",
		"cookie":        "***",
		"accept":        "application/json",
		"x-tag":         []any{"a", "b"},
	}, got)

	h.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "***", MaskHeaders(h)["authorization"])
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = userctx.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, inbound)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, inbound, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "<script>", seen)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")
	assert.True(t, l.Allow("b"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "refilled after a second")

	now = now.Add(visitorIdle + time.Second)
	l.Allow("c")
	assert.NotContains(t, l.visitors, "a", "idle visitors are swept")
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("a"))
	}
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, http.StatusNotFound, hook.LastEntry().Data["status"])
	assert.Equal(t, "/missing", hook.LastEntry().Data["path"])
}
