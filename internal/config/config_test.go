package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// TestFromLookup_Defaults verifies a bare environment gives a usable development config.
func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("FromLookup() = %v", err)
	}
	if cfg.Env != EnvDevelopment || cfg.Addr != DefaultAddr {
		t.Errorf("Env/Addr = %q/%q", cfg.Env, cfg.Addr)
	}
	if cfg.DBDriver != DriverSQLite || cfg.Identity != IdentityLocal {
		t.Errorf("DBDriver/Identity = %q/%q", cfg.DBDriver, cfg.Identity)
	}
	if cfg.PaymentAmount != 97 {
		t.Errorf("PaymentAmount = %v, want 97", cfg.PaymentAmount)
	}
	if cfg.CheckoutURL != DefaultLocalCheckoutURL {
		t.Errorf("CheckoutURL = %q", cfg.CheckoutURL)
	}
	if len(cfg.AppHosts) != 2 || cfg.AppHosts[1] != "localhost" {
		t.Errorf("AppHosts = %v", cfg.AppHosts)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if cfg.SlowRequest != 200*time.Millisecond || cfg.SlowQuery != 50*time.Millisecond {
		t.Errorf("SlowRequest/SlowQuery = %v/%v, want 200ms/50ms", cfg.SlowRequest, cfg.SlowQuery)
	}
	if cfg.SupportEmail != DefaultSupportEmail || cfg.SupportPhone != DefaultSupportPhone {
		t.Errorf("SupportEmail/SupportPhone = %q/%q", cfg.SupportEmail, cfg.SupportPhone)
	}
}

// TestFromLookup_Overrides verifies optional settings are read from the lookup.
func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"MASTERY_SLOW_REQUEST_MS": "750",
		"MASTERY_SLOW_QUERY_MS":   " 5 ",
		"MASTERY_SUPPORT_EMAIL":   "help@example.com",
	}))
	if err != nil {
		t.Fatalf("FromLookup() = %v", err)
	}
	if cfg.SlowRequest != 750*time.Millisecond {
		t.Errorf("SlowRequest = %v, want 750ms", cfg.SlowRequest)
	}
	if cfg.SlowQuery != 5*time.Millisecond {
		t.Errorf("SlowQuery = %v, want 5ms", cfg.SlowQuery)
	}
	if cfg.SupportEmail != "help@example.com" {
		t.Errorf("SupportEmail = %q", cfg.SupportEmail)
	}
}

// TestFromLookup_SupabaseDerivesFunctionURLs verifies function defaults come from the project URL.
func TestFromLookup_SupabaseDerivesFunctionURLs(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"MASTERY_IDENTITY":  IdentitySupabase,
		"SUPABASE_URL":      "https://proj.supabase.co/",
		"SUPABASE_ANON_KEY": "anon",
	}))
	if err != nil {
		t.Fatalf("FromLookup() = %v", err)
	}
	if cfg.CheckoutURL != "https://proj.supabase.co/functions/v1/create-checkout-session" {
		t.Errorf("CheckoutURL = %q", cfg.CheckoutURL)
	}
	if cfg.FunctionKey != "anon" {
		t.Errorf("FunctionKey = %q, want anon key", cfg.FunctionKey)
	}
}

// TestFromLookup_Errors verifies invalid settings are configuration errors.
func TestFromLookup_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{"unknown driver", map[string]string{"MASTERY_DB_DRIVER": "mysql"}, "MASTERY_DB_DRIVER"},
		{"postgres without url", map[string]string{"MASTERY_DB_DRIVER": "postgres"}, "MASTERY_DATABASE_URL"},
		{"supabase without url", map[string]string{"MASTERY_IDENTITY": "supabase"}, "SUPABASE_URL"},
		{"supabase without key", map[string]string{"MASTERY_IDENTITY": "supabase", "SUPABASE_URL": "https://x"}, "SUPABASE_ANON_KEY"},
		{"unknown identity", map[string]string{"MASTERY_IDENTITY": "ldap"}, "MASTERY_IDENTITY"},
		{"bad csrf key", map[string]string{"MASTERY_CSRF_KEY": "abc"}, "MASTERY_CSRF_KEY"},
		{"bad amount", map[string]string{"MASTERY_PAYMENT_AMOUNT": "ninety"}, "MASTERY_PAYMENT_AMOUNT"},
		{"bad slow request", map[string]string{"MASTERY_SLOW_REQUEST_MS": "fast"}, "MASTERY_SLOW_REQUEST_MS"},
		{"zero slow query", map[string]string{"MASTERY_SLOW_QUERY_MS": "0"}, "MASTERY_SLOW_QUERY_MS"},
		{"production without csrf", map[string]string{"MASTERY_ENV": "production"}, "MASTERY_CSRF_KEY"},
		{"production without checkout", map[string]string{
			"MASTERY_ENV":              "production",
			"MASTERY_CSRF_KEY":         strings.Repeat("ab", 32),
			"MASTERY_LOCAL_JWT_SECRET": "s",
		}, "MASTERY_CHECKOUT_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.env))
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("FromLookup() = %v, want ConfigurationError", err)
			}
			if ce.Key != tt.key {
				t.Errorf("Key = %q, want %q", ce.Key, tt.key)
			}
		})
	}
}

// TestConfig_IsAdminEmail tests admin list matching.
func TestConfig_IsAdminEmail(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{"MASTERY_ADMIN_EMAILS": "Boss@Example.com, ops@example.com"}))
	if err != nil {
		t.Fatalf("FromLookup() = %v", err)
	}
	if !cfg.IsAdminEmail("boss@example.com") || !cfg.IsAdminEmail(" OPS@example.com") {
		t.Error("admin emails not matched case-insensitively")
	}
	if cfg.IsAdminEmail("") || cfg.IsAdminEmail("agent@example.com") {
		t.Error("non-admin matched")
	}
}

// TestConfigurationError_Message tests error formatting.
func TestConfigurationError_Message(t *testing.T) {
	if got := Missing("RESEND_API_KEY").Error(); got != "RESEND_API_KEY is not configured" {
		t.Errorf("Error() = %q", got)
	}
}
