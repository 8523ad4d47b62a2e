package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"gitea.com/go-chi/session"
	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/userctx"
)

// Credential sources of the token channel.
const (
	HeaderAPIToken = "X-API-Token"
	QueryToken     = "token"
)

// Session keys written by the login flow and read by the session channel.
const (
	SessionUserID   = "user_id"
	SessionNickname = "user_nickname"
	SessionLoginAt  = "login_at"
	SessionState    = "state"
)

// Channel is one way a caller can prove it may invoke protected endpoints.
type Channel interface {
	Name() string
	Authenticate(r *http.Request) (subject string, ok bool)
}

// Gate admits a request when any of its channels accepts it.
type Gate struct {
	channels []Channel
	log      logrus.FieldLogger
	debug    bool
}

// NewGate creates a gate over channels, consulted in order. With debug set
// every decision is logged at info level.
func NewGate(log logrus.FieldLogger, debug bool, channels ...Channel) *Gate {
	return &Gate{channels: channels, log: log, debug: debug}
}

// Authenticate returns the operator admitted by the first accepting channel.
func (g *Gate) Authenticate(r *http.Request) (userctx.Operator, bool) {
	for _, ch := range g.channels {
		if subject, ok := ch.Authenticate(r); ok {
			if g.debug {
				g.log.WithFields(logrus.Fields{"channel": ch.Name(), "path": r.URL.Path}).Info("auth gate accepted")
			}
			return userctx.Operator{Channel: ch.Name(), Subject: subject}, true
		}
	}
	if g.debug {
		g.log.WithField("path", r.URL.Path).Info("auth gate rejected: no channel accepted")
	}
	return userctx.Operator{}, false
}

// TokenChannel accepts the configured API token from the X-API-Token header,
// an Authorization bearer, or the token query parameter.
type TokenChannel struct {
	token []byte
}

// NewTokenChannel creates a token channel. An empty token never authenticates.
func NewTokenChannel(token string) *TokenChannel {
	return &TokenChannel{token: []byte(token)}
}

func (c *TokenChannel) Name() string { return "token" }

func (c *TokenChannel) Authenticate(r *http.Request) (string, bool) {
	if len(c.token) == 0 {
		return "", false
	}
	candidates := []string{
		r.Header.Get(HeaderAPIToken),
		bearerToken(r.Header.Get("Authorization")),
		r.URL.Query().Get(QueryToken),
	}
	for _, candidate := range candidates {
		if candidate != "" && subtle.ConstantTimeCompare([]byte(candidate), c.token) == 1 {
			return "api-token", true
		}
	}
	return "", false
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// SessionStore is the part of a session the auth channel and login flow use.
type SessionStore interface {
	Get(key interface{}) interface{}
	Set(key, value interface{}) error
	Delete(key interface{}) error
}

// SessionFromRequest returns the request's session, or nil when no session
// middleware ran for it.
func SessionFromRequest(r *http.Request) (store SessionStore) {
	defer func() {
		if recover() != nil {
			store = nil
		}
	}()
	sess := session.GetSession(r)
	if sess == nil {
		return nil
	}
	return sess
}

// SessionChannel accepts an admin session established by the login flow
// that is younger than its TTL. Expired sessions are cleared.
type SessionChannel struct {
	ttl    time.Duration
	now    func() time.Time
	lookup func(*http.Request) SessionStore
}

// NewSessionChannel creates a session channel.
func NewSessionChannel(ttl time.Duration) *SessionChannel {
	return &SessionChannel{ttl: ttl, now: time.Now, lookup: SessionFromRequest}
}

func (c *SessionChannel) Name() string { return "session" }

func (c *SessionChannel) Authenticate(r *http.Request) (string, bool) {
	sess := c.lookup(r)
	if sess == nil {
		return "", false
	}
	userID, _ := sess.Get(SessionUserID).(string)
	if userID == "" {
		return "", false
	}
	loginAt, _ := sess.Get(SessionLoginAt).(int64)
	if c.ttl > 0 && c.now().Sub(time.Unix(loginAt, 0)) > c.ttl {
		ClearSession(sess)
		return "", false
	}
	return userID, true
}

// ClearSession removes the admin identity from sess.
func ClearSession(sess SessionStore) {
	for _, key := range []string{SessionUserID, SessionNickname, SessionLoginAt} {
		_ = sess.Delete(key)
	}
}
