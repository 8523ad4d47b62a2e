package authenticator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OpenIDProvider implements the Provider interface for OpenID Connect
type OpenIDProvider struct {
	verifier *oidc.IDTokenVerifier
	config   oauth2.Config
}

// OpenIDConfig holds OpenID Connect configuration
type OpenIDConfig struct {
	// Domain is the issuer host, or a full issuer URL.
	Domain       string
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Validate reports the first missing setting.
func (cfg OpenIDConfig) Validate() error {
	switch {
	case cfg.Domain == "":
		return errors.New("domain is required")
	case cfg.ClientID == "":
		return errors.New("client ID is required")
	case cfg.ClientSecret == "":
		return errors.New("client secret is required")
	case cfg.CallbackURL == "":
		return errors.New("callback URL is required")
	}
	return nil
}

// IssuerURL returns the issuer URL derived from Domain. A full URL is used
// verbatim since discovery compares it byte for byte with the issuer claim.
func (cfg OpenIDConfig) IssuerURL() string {
	if strings.HasPrefix(cfg.Domain, "http://") || strings.HasPrefix(cfg.Domain, "https://") {
		return cfg.Domain
	}
	return "https://" + cfg.Domain + "/"
}

// NewOpenIDProvider discovers the issuer and creates a provider for it
func NewOpenIDProvider(ctx context.Context, cfg OpenIDConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL())
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", cfg.IssuerURL(), err)
	}

	conf := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &OpenIDProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		config:   conf,
	}, nil
}

// GetAuthURL returns the authorization URL for OpenID Connect
func (p *OpenIDProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens
func (p *OpenIDProvider) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	oauth2Token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	token := &Token{
		AccessToken:  oauth2Token.AccessToken,
		RefreshToken: oauth2Token.RefreshToken,
		Expiry:       oauth2Token.Expiry.Unix(),
	}
	if idToken, ok := oauth2Token.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}
	return token, nil
}

// GetClaims verifies the ID token and extracts its claims
func (p *OpenIDProvider) GetClaims(ctx context.Context, token *Token) (Claims, error) {
	if token.IDToken == "" {
		return nil, errors.New("no id_token in token")
	}

	idToken, err := p.verifier.Verify(ctx, token.IDToken)
	if err != nil {
		return nil, err
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}
