package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	emailAdapter "mastery/internal/adapters/email"
	"mastery/internal/adapters/functions"
	web "mastery/internal/adapters/http"
	"mastery/internal/adapters/identity/local"
	"mastery/internal/adapters/identity/supabase"
	"mastery/internal/adapters/identity/token"
	"mastery/internal/adapters/metrics"
	sessionBackend "mastery/internal/adapters/session"
	"mastery/internal/adapters/storage"
	accountStore "mastery/internal/adapters/storage/account"
	enrollmentStore "mastery/internal/adapters/storage/enrollment"
	leadStore "mastery/internal/adapters/storage/lead"
	"mastery/internal/application/orchestrators"
	"mastery/internal/application/session"
	"mastery/internal/config"
	"mastery/internal/domain/view"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	db, dialect := openDatabase(ctx, cfg)
	defer db.Close()
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	accounts := accountStore.NewSQLStore(timedDB, dialect)
	enrollments := enrollmentStore.NewSQLStore(timedDB, dialect)
	leads := leadStore.NewSQLStore(timedDB, dialect)

	provider := identityProvider(cfg, accounts)

	backend, closeBackend := sessionStorage(ctx, cfg)
	defer closeBackend()

	httpClient := &http.Client{Timeout: functions.DefaultTimeout}
	roadmapDeps := orchestrators.SendRoadmapDeps{
		Sender:     emailSender(cfg),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		PDFURL:     cfg.RoadmapPDFURL,
		From:       cfg.EmailFrom,
		Metrics:    collector,
	}
	var mailer orchestrators.RoadmapMailer = orchestrators.InProcessMailer{Deps: roadmapDeps}
	if cfg.EmailFunctionURL != "" {
		mailer = functions.NewRoadmapEmailClient(cfg.EmailFunctionURL, cfg.FunctionKey, httpClient)
		slog.Info("roadmap_mailer", "mode", "function", "url", cfg.EmailFunctionURL)
	} else {
		slog.Info("roadmap_mailer", "mode", "in_process")
	}

	csrfKey := cfg.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = randomKey(32)
		slog.Warn("csrf_key_generated", "reason", "MASTERY_CSRF_KEY not set; form tokens reset on restart")
	}

	srv, err := web.NewServer(web.Deps{
		Router: view.NewRouter(view.Config{
			AppHosts:   cfg.AppHosts,
			PricingURL: cfg.PricingURL,
			AppRootURL: cfg.AppURL,
		}),
		Sessions:       session.NewManager(backend, provider, enrollments),
		Enrollments:    enrollments,
		Leads:          leads,
		Checkout:       functions.NewCheckoutClient(cfg.CheckoutURL, cfg.FunctionKey, httpClient),
		Mailer:         mailer,
		RoadmapEmail:   roadmapDeps,
		FunctionKey:    cfg.FunctionKey,
		Metrics:        collector,
		Gatherer:       reg,
		DB:             db,
		SlowRequest:    cfg.SlowRequest,
		IsAdmin:        cfg.IsAdminEmail,
		PaymentAmount:  cfg.PaymentAmount,
		SupportEmail:   cfg.SupportEmail,
		SupportPhone:   cfg.SupportPhone,
		CSRFKey:        csrfKey,
		TrustedOrigins: cfg.AppHosts,
		Secure:         cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}
	go srv.SweepLoop(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown_error", "error", err.Error())
		}
	}()

	slog.Info("server_start", "version", version, "addr", cfg.Addr, "env", cfg.Env, "db", cfg.DBDriver, "identity", cfg.Identity)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	slog.Info("server_stopped")
}

func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, storage.Dialect) {
	if cfg.DBDriver == config.DriverPostgres {
		if err := storage.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		return db, storage.Postgres
	}
	db, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return db, storage.SQLite
}

func identityProvider(cfg config.Config, accounts *accountStore.SQLStore) session.Provider {
	if cfg.Identity == config.IdentitySupabase {
		var opts []supabase.Option
		if cfg.SupabaseJWTSecret != "" {
			opts = append(opts, supabase.WithJWTSecret(cfg.SupabaseJWTSecret))
		}
		return supabase.NewProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, opts...)
	}

	secret := cfg.LocalJWTSecret
	if secret == "" {
		secret = hex.EncodeToString(randomKey(32))
		slog.Warn("jwt_secret_generated", "reason", "MASTERY_LOCAL_JWT_SECRET not set; sessions reset on restart")
	}
	tokens, err := token.NewService(secret)
	if err != nil {
		log.Fatalf("failed to create token service: %v", err)
	}
	return local.NewProvider(accounts, tokens)
}

func sessionStorage(ctx context.Context, cfg config.Config) (sessionBackend.Backend, func()) {
	if cfg.RedisURL != "" {
		rb, err := sessionBackend.NewRedisBackendFromURL(ctx, cfg.RedisURL, sessionBackend.DefaultTTL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		return rb, func() { _ = rb.Close() }
	}

	mb := sessionBackend.NewMemoryBackend(sessionBackend.DefaultTTL)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mb.Sweep(); n > 0 {
					slog.Info("session_sweep", "expired", n)
				}
			}
		}
	}()
	return mb, func() {}
}

// emailSender returns nil when no Resend key is set in production, so the roadmap
// function reports the missing key instead of pretending to send.
func emailSender(cfg config.Config) emailAdapter.Sender {
	switch {
	case cfg.ResendAPIKey != "":
		slog.Info("email_sender", "mode", "resend")
		return emailAdapter.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	case cfg.IsProduction():
		slog.Warn("email_sender", "mode", "disabled", "reason", "RESEND_API_KEY is not set")
		return nil
	default:
		slog.Info("email_sender", "mode", "noop")
		return emailAdapter.NewNoopSender()
	}
}

func randomKey(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}
	return b
}
