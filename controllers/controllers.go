package controllers

import (
	"github.com/sirupsen/logrus"

	"github.com/blogem/content-api/authenticator"
	"github.com/blogem/content-api/middleware"
	"github.com/blogem/content-api/services"
)

// Options configures the controllers built by NewControllers.
type Options struct {
	Prefix       string
	MaxBodyBytes int64
	// Provider enables the admin login flow when set.
	Provider authenticator.Provider
}

// Controllers holds all controller instances
type Controllers struct {
	Definitions *DefinitionController
	Dispatch    *DispatchController
	// Auth is nil when no identity provider is configured.
	Auth *AuthController
}

// NewControllers creates and initializes all controller instances
func NewControllers(srvs *services.Services, gate *middleware.Gate, log logrus.FieldLogger, opts Options) *Controllers {
	ctrl := &Controllers{
		Definitions: NewDefinitionController(srvs.Definition, srvs.Content, log),
		Dispatch:    NewDispatchController(srvs.Dispatch, gate, opts.Prefix, opts.MaxBodyBytes, log),
	}
	if opts.Provider != nil {
		ctrl.Auth = NewAuthController(opts.Provider, log)
	}
	return ctrl
}
