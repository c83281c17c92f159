// Package config loads portal settings from the environment.
//
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence over it.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environments
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Identity backends
const (
	IdentityLocal    = "local"
	IdentitySupabase = "supabase"
)

// Defaults
const (
	DefaultAddr      = ":8080"
	DefaultDBPath    = "mastery.db"
	DefaultEmailFrom = "Medicare Mastery <onboarding@medicaremasteryprogram.com>"

	DefaultSupportEmail = "support@medicaremastery.com"
	DefaultSupportPhone = "+15551234567"
	DefaultSlowRequest  = 200 * time.Millisecond
	DefaultSlowQuery    = 50 * time.Millisecond

	// DefaultLocalCheckoutURL is where `supabase functions serve` listens.
	DefaultLocalCheckoutURL = "http://localhost:54321/functions/v1/create-checkout-session"
)

// ConfigurationError reports a missing or malformed setting. It is not recoverable at runtime.
type ConfigurationError struct {
	Key    string
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return e.Key + " is not configured"
	}
	return e.Key + " " + e.Reason
}

// Missing returns a ConfigurationError for an unset key.
func Missing(key string) *ConfigurationError {
	return &ConfigurationError{Key: key}
}

// Config holds every setting the server reads at startup.
type Config struct {
	Env       string
	Addr      string
	LogFormat string

	DBDriver    string
	DBPath      string
	DatabaseURL string
	RedisURL    string

	Identity          string
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	LocalJWTSecret    string

	AppHosts   []string
	PricingURL string
	AppURL     string

	CheckoutURL      string
	EmailFunctionURL string
	FunctionKey      string

	// Checked per request by the roadmap email function, not at startup.
	ResendAPIKey  string
	RoadmapPDFURL string
	EmailFrom     string

	CSRFKey       []byte
	AdminEmails   []string
	PaymentAmount float64
	SupportEmail  string
	SupportPhone  string

	// Requests and queries at or above these durations log a warning.
	SlowRequest time.Duration
	SlowQuery   time.Duration
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// IsAdminEmail reports whether email belongs to the configured admin list.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, a := range c.AdminEmails {
		if a == email {
			return true
		}
	}
	return false
}

// Load reads .env (if present) and the environment.
// PRE: none
// POST: Returns a validated Config or a ConfigurationError
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable lookup. Tests pass a map here.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		Env:               get("MASTERY_ENV", EnvDevelopment),
		Addr:              get("MASTERY_ADDR", DefaultAddr),
		LogFormat:         get("MASTERY_LOG_FORMAT", ""),
		DBDriver:          get("MASTERY_DB_DRIVER", DriverSQLite),
		DBPath:            get("MASTERY_DB_PATH", DefaultDBPath),
		DatabaseURL:       get("MASTERY_DATABASE_URL", ""),
		RedisURL:          get("MASTERY_REDIS_URL", ""),
		Identity:          get("MASTERY_IDENTITY", IdentityLocal),
		SupabaseURL:       strings.TrimRight(get("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:   get("SUPABASE_ANON_KEY", ""),
		SupabaseJWTSecret: get("SUPABASE_JWT_SECRET", ""),
		LocalJWTSecret:    get("MASTERY_LOCAL_JWT_SECRET", ""),
		AppHosts:          splitList(get("MASTERY_APP_HOSTS", "app.medicaremastery.app,localhost")),
		PricingURL:        get("MASTERY_PRICING_URL", "https://medicaremastery.app/pricing"),
		AppURL:            get("MASTERY_APP_URL", "https://app.medicaremastery.app"),
		CheckoutURL:       get("MASTERY_CHECKOUT_URL", ""),
		EmailFunctionURL:  get("MASTERY_EMAIL_FUNCTION_URL", ""),
		FunctionKey:       get("MASTERY_FUNCTION_KEY", ""),
		ResendAPIKey:      get("RESEND_API_KEY", ""),
		RoadmapPDFURL:     get("ROADMAP_PDF_URL", ""),
		EmailFrom:         get("MASTERY_EMAIL_FROM", DefaultEmailFrom),
		AdminEmails:       splitList(strings.ToLower(get("MASTERY_ADMIN_EMAILS", ""))),
		PaymentAmount:     97,
		SupportEmail:      get("MASTERY_SUPPORT_EMAIL", DefaultSupportEmail),
		SupportPhone:      get("MASTERY_SUPPORT_PHONE", DefaultSupportPhone),
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}

	// The hosted functions live under the Supabase project by default.
	if cfg.SupabaseURL != "" {
		if cfg.CheckoutURL == "" {
			cfg.CheckoutURL = cfg.SupabaseURL + "/functions/v1/create-checkout-session"
		}
		if cfg.FunctionKey == "" {
			cfg.FunctionKey = cfg.SupabaseAnonKey
		}
	}
	if cfg.CheckoutURL == "" && !cfg.IsProduction() {
		cfg.CheckoutURL = DefaultLocalCheckoutURL
	}

	if v := get("MASTERY_PAYMENT_AMOUNT", ""); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil || amount < 0 {
			return Config{}, &ConfigurationError{Key: "MASTERY_PAYMENT_AMOUNT", Reason: "must be a non-negative number"}
		}
		cfg.PaymentAmount = amount
	}

	var err error
	if cfg.SlowRequest, err = millis(get, "MASTERY_SLOW_REQUEST_MS", DefaultSlowRequest); err != nil {
		return Config{}, err
	}
	if cfg.SlowQuery, err = millis(get, "MASTERY_SLOW_QUERY_MS", DefaultSlowQuery); err != nil {
		return Config{}, err
	}

	if keyHex := get("MASTERY_CSRF_KEY", ""); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return Config{}, &ConfigurationError{Key: "MASTERY_CSRF_KEY", Reason: "must be 64 hex characters (32 bytes)"}
		}
		cfg.CSRFKey = key
	} else if cfg.IsProduction() {
		return Config{}, &ConfigurationError{Key: "MASTERY_CSRF_KEY", Reason: "is required in production"}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return Missing("MASTERY_DATABASE_URL")
		}
	default:
		return &ConfigurationError{Key: "MASTERY_DB_DRIVER", Reason: fmt.Sprintf("must be %q or %q", DriverSQLite, DriverPostgres)}
	}

	switch c.Identity {
	case IdentityLocal:
		if c.IsProduction() && c.LocalJWTSecret == "" {
			return &ConfigurationError{Key: "MASTERY_LOCAL_JWT_SECRET", Reason: "is required in production"}
		}
	case IdentitySupabase:
		if c.SupabaseURL == "" {
			return Missing("SUPABASE_URL")
		}
		if c.SupabaseAnonKey == "" {
			return Missing("SUPABASE_ANON_KEY")
		}
	default:
		return &ConfigurationError{Key: "MASTERY_IDENTITY", Reason: fmt.Sprintf("must be %q or %q", IdentityLocal, IdentitySupabase)}
	}

	if c.CheckoutURL == "" {
		return Missing("MASTERY_CHECKOUT_URL")
	}
	return nil
}

// millis parses key as a positive whole number of milliseconds.
func millis(get func(key, fallback string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, &ConfigurationError{Key: key, Reason: "must be a positive number of milliseconds"}
	}
	return time.Duration(n) * time.Millisecond, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
