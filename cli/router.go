package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/authenticator"
	"github.com/blogem/content-api/config"
	"github.com/blogem/content-api/controllers"
	"github.com/blogem/content-api/metrics"
	"github.com/blogem/content-api/middleware"
	"github.com/blogem/content-api/services"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps is everything NewRouter wires together.
type RouterDeps struct {
	Config   *config.Config
	Services *services.Services
	Metrics  *metrics.Metrics
	// Provider enables /login, /callback and /logout when set.
	Provider authenticator.Provider
	DB       Pinger
	Log      logrus.FieldLogger
}

// NewRouter configures all routes
func NewRouter(deps RouterDeps) (http.Handler, error) {
	cfg := deps.Config
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(deps.Metrics.InstrumentHandler)
	r.Use(middleware.RequestLogger(deps.Log))

	ttl := int64(cfg.SessionTTL() / time.Second)
	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     "content_api_session",
		Secure:         cfg.Server.UseHTTPS,
		Gclifetime:     ttl,
		Maxlifetime:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)

	gate := middleware.NewGate(deps.Log, cfg.Logging.DebugDispatch,
		middleware.NewTokenChannel(cfg.Auth.APIToken),
		middleware.NewSessionChannel(cfg.SessionTTL()),
	)
	ctrl := controllers.NewControllers(deps.Services, gate, deps.Log, controllers.Options{
		Prefix:       cfg.Dispatch.Prefix,
		MaxBodyBytes: cfg.Dispatch.MaxBodyBytes,
		Provider:     deps.Provider,
	})

	r.NotFound(controllers.NotFound)

	// dynamic endpoints, any method
	limiter := middleware.NewRateLimiter(cfg.Dispatch.RateLimitRPS, cfg.Dispatch.RateLimitBurst)
	dispatch := limiter.Middleware(ctrl.Dispatch.Handler(http.HandlerFunc(controllers.NotFound)))
	r.Handle(cfg.Dispatch.Prefix, dispatch)
	r.Handle(cfg.Dispatch.Prefix+"/*", dispatch)

	r.Get("/health", health(deps.DB))
	r.Handle("/metrics", deps.Metrics.Handler())

	if ctrl.Auth != nil {
		r.Get("/login", ctrl.Auth.Login)
		r.Get("/callback", ctrl.Auth.Callback)
		r.Get("/logout", ctrl.Auth.Logout)
	}

	r.Route("/api/external/custom-apis", func(r chi.Router) {
		r.Use(middleware.RequireAuth(gate))

		r.Get("/", ctrl.Definitions.List)
		r.Post("/", ctrl.Definitions.Create)
		r.Get("/{id}", ctrl.Definitions.Get)
		r.Put("/{id}", ctrl.Definitions.Update)
		r.Delete("/{id}", ctrl.Definitions.Delete)
		r.Patch("/{id}/content", ctrl.Definitions.PatchContent)
		r.Get("/{id}/logs", ctrl.Definitions.Logs)
	})

	return r, nil
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "service": "content-api"})
	}
}
