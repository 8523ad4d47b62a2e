package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Listen         string `yaml:"listen"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		UseHTTPS       bool   `yaml:"use_https"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Auth struct {
		// APIToken is the shared secret of the token channel. Empty disables it.
		APIToken               string `yaml:"api_token"`
		AdminSessionTTLMinutes int    `yaml:"admin_session_ttl_minutes"`
		OIDC                   struct {
			Domain       string `yaml:"domain"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			CallbackURL  string `yaml:"callback_url"`
		} `yaml:"oidc"`
	} `yaml:"auth"`

	Dispatch struct {
		Prefix         string  `yaml:"prefix"`
		MaxBodyBytes   int64   `yaml:"max_body_bytes"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"dispatch"`

	Audit struct {
		TimeoutMs     int `yaml:"timeout_ms"`
		RetentionDays int `yaml:"retention_days"`
	} `yaml:"audit"`

	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"`
		DebugDispatch bool   `yaml:"debug_dispatch"`
	} `yaml:"logging"`
}

// Load reads .env (when present) and the YAML file at path, then applies
// defaults and CONTENTAPI_* environment overrides. A missing file at path is
// not an error; configuration then comes from defaults and the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OIDCEnabled reports whether the admin login flow is configured.
func (c *Config) OIDCEnabled() bool {
	return c.Auth.OIDC.Domain != ""
}

// SessionTTL is the lifetime of an admin session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.AdminSessionTTLMinutes) * time.Minute
}

// AuditTimeout bounds a single asynchronous audit write.
func (c *Config) AuditTimeout() time.Duration {
	return time.Duration(c.Audit.TimeoutMs) * time.Millisecond
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 30000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = 60000
	}
	if strings.TrimSpace(cfg.Database.Path) == "" {
		cfg.Database.Path = "content_api.db"
	}
	if cfg.Auth.AdminSessionTTLMinutes <= 0 {
		cfg.Auth.AdminSessionTTLMinutes = 60
	}
	if strings.TrimSpace(cfg.Dispatch.Prefix) == "" {
		cfg.Dispatch.Prefix = "/api/custom"
	}
	if cfg.Dispatch.MaxBodyBytes <= 0 {
		cfg.Dispatch.MaxBodyBytes = 1 << 20
	}
	if cfg.Dispatch.RateLimitBurst <= 0 {
		cfg.Dispatch.RateLimitBurst = 20
	}
	if cfg.Audit.TimeoutMs <= 0 {
		cfg.Audit.TimeoutMs = 5000
	}
	if cfg.Audit.RetentionDays <= 0 {
		cfg.Audit.RetentionDays = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" && os.Getenv("CONTENTAPI_LISTEN") == "" {
		cfg.Server.Listen = ":" + v
	}
	cfg.Server.UseHTTPS = envBool("CONTENTAPI_USE_HTTPS", cfg.Server.UseHTTPS)
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_DB_PATH")); v != "" {
		cfg.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_API_TOKEN")); v != "" {
		cfg.Auth.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_SESSION_TTL_MINUTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Auth.AdminSessionTTLMinutes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_OIDC_DOMAIN")); v != "" {
		cfg.Auth.OIDC.Domain = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_OIDC_CLIENT_ID")); v != "" {
		cfg.Auth.OIDC.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_OIDC_CLIENT_SECRET")); v != "" {
		cfg.Auth.OIDC.ClientSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_OIDC_CALLBACK_URL")); v != "" {
		cfg.Auth.OIDC.CallbackURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_DISPATCH_PREFIX")); v != "" {
		cfg.Dispatch.Prefix = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_RATE_LIMIT_RPS")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			cfg.Dispatch.RateLimitRPS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("CONTENTAPI_LOG_FORMAT")); v != "" {
		cfg.Logging.Format = v
	}
	cfg.Logging.DebugDispatch = envBool("CONTENTAPI_DEBUG_DISPATCH", cfg.Logging.DebugDispatch)
}

func validate(cfg *Config) error {
	prefix := cfg.Dispatch.Prefix
	if !strings.HasPrefix(prefix, "/") || prefix == "/" || strings.HasSuffix(prefix, "/") {
		return errors.New("dispatch.prefix must start with / and must not end with /")
	}
	if cfg.Dispatch.RateLimitRPS < 0 {
		return errors.New("dispatch.rate_limit_rps must be non-negative")
	}
	if _, err := logrus.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}
	oidc := cfg.Auth.OIDC
	if oidc.Domain != "" && (oidc.ClientID == "" || oidc.ClientSecret == "" || oidc.CallbackURL == "") {
		return errors.New("auth.oidc requires client_id, client_secret and callback_url when domain is set")
	}
	return nil
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
