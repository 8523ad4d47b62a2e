// Package authenticator wraps the OpenID Connect provider behind the admin
// login flow. A successful login establishes the session accepted by the
// session auth channel.
package authenticator

import (
	"context"
)

// Token represents an authentication token
type Token struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       int64
}

// Claims represents user claims from the ID token
type Claims map[string]interface{}

// Subject returns the "sub" claim, or "" when absent.
func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// DisplayName picks the first non-empty of nickname, name, email and subject.
func (c Claims) DisplayName() string {
	for _, key := range []string{"nickname", "name", "email"} {
		if v, ok := c[key].(string); ok && v != "" {
			return v
		}
	}
	return c.Subject()
}

// Provider interface abstracts OAuth provider operations
type Provider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	GetClaims(ctx context.Context, token *Token) (Claims, error)
}
