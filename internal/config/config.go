package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// Config holds process-wide settings loaded from the environment.
type Config struct {
	HTTPAddr string
	PGDSN    string

	// AuthSecret signs every token the service issues. Rotating it
	// invalidates all outstanding tokens; there is no grace-period
	// key rotation.
	AuthSecret string

	// ProviderSecret is the shared secret used to authenticate inbound
	// payment-provider webhooks.
	ProviderSecret  string
	ProviderBaseURL string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ActionTTL  time.Duration

	Issuer string
}

var (
	ErrMissingAuthSecret     = errors.New("config: COL_AUTH_SECRET is not set")
	ErrMissingProviderSecret = errors.New("config: COL_PAYSTACK_SECRET is not set")
)

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getdur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Load reads configuration from the environment. Both signing secrets are
// mandatory: the process must not start without them.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        getenv("COL_HTTP_ADDR", ":8080"),
		PGDSN:           getenv("COL_PG_DSN", ""),
		AuthSecret:      getenv("COL_AUTH_SECRET", ""),
		ProviderSecret:  getenv("COL_PAYSTACK_SECRET", ""),
		ProviderBaseURL: getenv("COL_PAYSTACK_BASE_URL", "https://api.paystack.co"),
		AccessTTL:       getdur("COL_ACCESS_TTL", 30*time.Minute),
		RefreshTTL:      getdur("COL_REFRESH_TTL", 72*time.Hour),
		ActionTTL:       getdur("COL_ACTION_TTL", 24*time.Hour),
		Issuer:          getenv("COL_TOKEN_ISSUER", "colschool"),
	}
	if cfg.AuthSecret == "" {
		return Config{}, ErrMissingAuthSecret
	}
	if cfg.ProviderSecret == "" {
		return Config{}, ErrMissingProviderSecret
	}
	return cfg, nil
}
