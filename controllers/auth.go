package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/authenticator"
	"github.com/blogem/content-api/middleware"
)

// AuthController runs the admin login flow that establishes sessions
type AuthController struct {
	provider authenticator.Provider
	session  func(*http.Request) middleware.SessionStore
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewAuthController creates an auth controller for provider
func NewAuthController(provider authenticator.Provider, log logrus.FieldLogger) *AuthController {
	return &AuthController{
		provider: provider,
		session:  middleware.SessionFromRequest,
		now:      time.Now,
		log:      log,
	}
}

// Login handles GET /login by redirecting to the identity provider
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	sess := ac.session(r)
	if sess == nil {
		writeFailure(w, http.StatusInternalServerError, CodeServerError, "session unavailable", nil)
		return
	}

	state, err := generateRandomState()
	if err != nil {
		writeError(w, ac.log, err)
		return
	}
	// the callback must present the same state
	_ = sess.Set(middleware.SessionState, state)

	http.Redirect(w, r, ac.provider.GetAuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /callback from the identity provider
func (ac *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	sess := ac.session(r)
	if sess == nil {
		writeFailure(w, http.StatusInternalServerError, CodeServerError, "session unavailable", nil)
		return
	}

	storedState, _ := sess.Get(middleware.SessionState).(string)
	if storedState == "" || r.URL.Query().Get("state") != storedState {
		writeFailure(w, http.StatusBadRequest, CodeValidation, "invalid state parameter", nil)
		return
	}
	_ = sess.Delete(middleware.SessionState)

	token, err := ac.provider.ExchangeCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		ac.log.WithError(err).Warn("authorization code exchange failed")
		writeFailure(w, http.StatusUnauthorized, CodeUnauthorized, "failed to exchange authorization code", nil)
		return
	}

	claims, err := ac.provider.GetClaims(r.Context(), token)
	if err != nil {
		ac.log.WithError(err).Warn("id token verification failed")
		writeFailure(w, http.StatusUnauthorized, CodeUnauthorized, "failed to verify ID token", nil)
		return
	}
	subject := claims.Subject()
	if subject == "" {
		writeFailure(w, http.StatusUnauthorized, CodeUnauthorized, "ID token has no subject", nil)
		return
	}

	_ = sess.Set(middleware.SessionUserID, subject)
	_ = sess.Set(middleware.SessionNickname, claims.DisplayName())
	_ = sess.Set(middleware.SessionLoginAt, ac.now().Unix())

	ac.log.WithField("operator", subject).Info("admin logged in")
	writeSuccess(w, http.StatusOK, "logged in", map[string]string{
		"user_id":  subject,
		"nickname": claims.DisplayName(),
	})
}

// Logout handles GET /logout
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := ac.session(r); sess != nil {
		middleware.ClearSession(sess)
	}
	writeSuccess(w, http.StatusOK, "logged out", nil)
}

// generateRandomState generates a random state value for CSRF protection
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
