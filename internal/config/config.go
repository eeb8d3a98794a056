package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	AuthModeDevelopment = "development"
	AuthModeGoTrue      = "gotrue"
)

type Config struct {
	Port                     string        `mapstructure:"PORT"`
	Env                      string        `mapstructure:"ENV"`
	AuthMode                 string        `mapstructure:"AUTH_MODE"`
	DatabaseURL              string        `mapstructure:"DATABASE_URL"`
	DBMaxConns               int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns               int32         `mapstructure:"DB_MIN_CONNS"`
	AuthURL                  string        `mapstructure:"AUTH_URL"`
	AuthAnonKey              string        `mapstructure:"AUTH_ANON_KEY"`
	AuthJWTSecret            string        `mapstructure:"AUTH_JWT_SECRET"`
	AuthRequireConfirmation  bool          `mapstructure:"AUTH_REQUIRE_CONFIRMATION"`
	CORSOrigins              []string      `mapstructure:"CORS_ORIGINS"`
	SessionCheckTimeout      time.Duration `mapstructure:"SESSION_CHECK_TIMEOUT"`
	ProfileTimeout           time.Duration `mapstructure:"PROFILE_TIMEOUT"`
	RequestTimeout           time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	WorkspaceIdleTTL         time.Duration `mapstructure:"WORKSPACE_IDLE_TTL"`
	EnforceStatusTransitions bool          `mapstructure:"ENFORCE_STATUS_TRANSITIONS"`
	BodyLimit                string        `mapstructure:"BODY_LIMIT"`
	AuthRateLimitRPS         float64       `mapstructure:"AUTH_RATE_LIMIT_RPS"`
	AuthRateLimitBurst       int           `mapstructure:"AUTH_RATE_LIMIT_BURST"`
	TLSEnabled               bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile              string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile               string        `mapstructure:"TLS_KEY_FILE"`

	// Memory keeps every table in process instead of PostgreSQL. Set by the
	// serve --memory flag, not the environment.
	Memory bool `mapstructure:"-"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_URL", "AUTH_ANON_KEY", "AUTH_JWT_SECRET", "AUTH_REQUIRE_CONFIRMATION", "CORS_ORIGINS",
	"SESSION_CHECK_TIMEOUT", "PROFILE_TIMEOUT", "REQUEST_TIMEOUT", "WORKSPACE_IDLE_TTL",
	"ENFORCE_STATUS_TRANSITIONS", "BODY_LIMIT", "AUTH_RATE_LIMIT_RPS", "AUTH_RATE_LIMIT_BURST",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_CHECK_TIMEOUT", "10s")
	v.SetDefault("PROFILE_TIMEOUT", "15s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("WORKSPACE_IDLE_TTL", "30m")
	v.SetDefault("ENFORCE_STATUS_TRANSITIONS", true)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("AUTH_RATE_LIMIT_RPS", 0.5)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 10)

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise development
// environments use the in-process provider and everything else the hosted
// GoTrue API.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeGoTrue
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.Memory && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (or run with --memory)")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=development is not allowed when ENV=production")
		}
	case AuthModeGoTrue:
		if c.AuthURL == "" || c.AuthAnonKey == "" {
			return fmt.Errorf("AUTH_URL and AUTH_ANON_KEY are required when AUTH_MODE is %q", mode)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDevelopment, AuthModeGoTrue, mode)
	}

	if c.IsProduction() && c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}

	for name, d := range map[string]time.Duration{
		"SESSION_CHECK_TIMEOUT": c.SessionCheckTimeout,
		"PROFILE_TIMEOUT":       c.ProfileTimeout,
		"REQUEST_TIMEOUT":       c.RequestTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.WorkspaceIdleTTL < 0 {
		return fmt.Errorf("WORKSPACE_IDLE_TTL must not be negative")
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	return nil
}

// WarnInsecure logs the development-only settings in effect.
func (c *Config) WarnInsecure(logger zerolog.Logger) {
	if c.ResolvedAuthMode() == AuthModeDevelopment {
		logger.Warn().Msg("AUTH_MODE=development: accounts live in process memory and are lost on restart")
	}
	if c.AuthJWTSecret == "" {
		logger.Warn().Msg("AUTH_JWT_SECRET is empty: using a random signing secret for this process")
	}
	if c.Memory {
		logger.Warn().Msg("--memory: billing data lives in process memory and is lost on restart")
	}
}
