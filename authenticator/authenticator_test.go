package authenticator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   string
	}{
		{"nickname first", Claims{"sub": "auth0|1", "nickname": "ann", "name": "Ann Lee"}, "ann"},
		{"falls back to name", Claims{"sub": "auth0|1", "nickname": "", "name": "Ann Lee"}, "Ann Lee"},
		{"falls back to email", Claims{"sub": "auth0|1", "email": "ann@example.com"}, "ann@example.com"},
		{"falls back to subject", Claims{"sub": "auth0|1"}, "auth0|1"},
		{"nothing at all", Claims{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.DisplayName())
		})
	}
}

func TestOpenIDConfig(t *testing.T) {
	cfg := OpenIDConfig{Domain: "tenant.auth0.com", ClientID: "id", ClientSecret: "secret", CallbackURL: "http://localhost/callback"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://tenant.auth0.com/", cfg.IssuerURL())

	cfg.Domain = "http://localhost:8081/realms/shop"
	assert.Equal(t, "http://localhost:8081/realms/shop", cfg.IssuerURL())

	cfg.ClientSecret = ""
	assert.EqualError(t, cfg.Validate(), "client secret is required")
}

func TestNewOpenIDProvider_RejectsIncompleteConfig(t *testing.T) {
	_, err := NewOpenIDProvider(context.Background(), OpenIDConfig{Domain: "tenant.auth0.com"})
	assert.EqualError(t, err, "client ID is required")
}
