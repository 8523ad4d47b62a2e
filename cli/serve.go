package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blogem/content-api/authenticator"
	"github.com/blogem/content-api/database"
	"github.com/blogem/content-api/metrics"
	"github.com/blogem/content-api/repositories"
	"github.com/blogem/content-api/services"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}

	db, err := database.InitializeDatabase(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	m := metrics.New()
	repos := repositories.NewRepositories(db)
	srvs := services.NewServices(repos, m, log, services.Options{
		DebugDispatch: cfg.Logging.DebugDispatch,
		AuditTimeout:  cfg.AuditTimeout(),
	})

	var provider authenticator.Provider
	if cfg.OIDCEnabled() {
		provider, err = authenticator.NewOpenIDProvider(ctx, authenticator.OpenIDConfig{
			Domain:       cfg.Auth.OIDC.Domain,
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			CallbackURL:  cfg.Auth.OIDC.CallbackURL,
		})
		if err != nil {
			return fmt.Errorf("initialize OpenID provider: %w", err)
		}
	}
	if cfg.Auth.APIToken == "" && provider == nil {
		log.Warn("no API token and no OpenID provider configured: management and protected endpoints will reject every caller")
	}

	handler, err := NewRouter(RouterDeps{
		Config:   cfg,
		Services: srvs,
		Metrics:  m,
		Provider: provider,
		DB:       db,
		Log:      log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"listen":   cfg.Server.Listen,
			"database": cfg.Database.Path,
			"prefix":   cfg.Dispatch.Prefix,
		}).Info("content API starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
	// pending audit writes must land before the database closes
	srvs.Audit.Wait()
	return nil
}
