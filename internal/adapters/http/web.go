package web

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mastery/internal/adapters/http/middleware"
	"mastery/internal/adapters/metrics"
	enrollmentStore "mastery/internal/adapters/storage/enrollment"
	leadStore "mastery/internal/adapters/storage/lead"
	"mastery/internal/application/orchestrators"
	"mastery/internal/application/session"
	"mastery/internal/domain/view"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds everything the HTTP layer needs. main builds it once.
type Deps struct {
	Router      *view.Router
	Sessions    *session.Manager
	Enrollments enrollmentStore.Store
	Leads       leadStore.Store
	Checkout    orchestrators.CheckoutSessions
	// Mailer is used by the roadmap form; RoadmapEmail backs the email function endpoint.
	Mailer       orchestrators.RoadmapMailer
	RoadmapEmail orchestrators.SendRoadmapDeps
	FunctionKey  string

	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
	DB       Pinger

	// SlowRequest is the warn threshold for request timing; zero uses the middleware default.
	SlowRequest time.Duration

	IsAdmin       func(email string) bool
	PaymentAmount float64
	SupportEmail  string
	SupportPhone  string
	GenerateID    func() string

	// CSRFKey enables gorilla/csrf on form posts when set.
	CSRFKey        []byte
	TrustedOrigins []string
	Secure         bool

	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Server is the portal's HTTP surface.
type Server struct {
	deps    Deps
	pages   *pageSet
	program []programModule
	limiter *middleware.RateLimiter

	enrollGuard  *orchestrators.InFlight
	leadGuard    *orchestrators.InFlight
	confirmGuard *orchestrators.InFlight
}

// Defaults for the per-IP POST limit.
const (
	DefaultRateLimitPerSecond = 2
	DefaultRateLimitBurst     = 10
)

// NewServer parses templates and program content and prepares the guards.
// PRE: deps.Router, Sessions, Enrollments, Leads, Checkout and Mailer are set
// POST: Returns a Server ready for Handler, or a template/content error
func NewServer(deps Deps) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	program, err := loadProgram()
	if err != nil {
		return nil, err
	}
	deps.Metrics = metrics.OrNop(deps.Metrics)
	if deps.IsAdmin == nil {
		deps.IsAdmin = func(string) bool { return false }
	}
	if deps.GenerateID == nil {
		deps.GenerateID = generateID
	}
	if deps.RateLimitPerSecond <= 0 {
		deps.RateLimitPerSecond = DefaultRateLimitPerSecond
	}
	if deps.RateLimitBurst <= 0 {
		deps.RateLimitBurst = DefaultRateLimitBurst
	}
	return &Server{
		deps:         deps,
		pages:        pages,
		program:      program,
		limiter:      middleware.NewRateLimiter(deps.RateLimitPerSecond, deps.RateLimitBurst),
		enrollGuard:  orchestrators.NewInFlight(),
		leadGuard:    orchestrators.NewInFlight(),
		confirmGuard: orchestrators.NewInFlight(),
	}, nil
}

// Handler wires routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	chain := []func(http.Handler) http.Handler{middleware.SecurityHeaders}
	if len(s.deps.CSRFKey) > 0 {
		chain = append(chain, middleware.CSRF(middleware.CSRFConfig{
			Key:            s.deps.CSRFKey,
			Secure:         s.deps.Secure,
			TrustedOrigins: s.deps.TrustedOrigins,
			ExemptPrefixes: []string{functionPathPrefix},
		}))
	}
	chain = append(chain,
		middleware.Auth(s.deps.Sessions, s.deps.Secure),
		middleware.RateLimit(s.limiter),
		middleware.Timing(s.deps.Metrics, s.deps.SlowRequest),
	)
	// Effective order: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> mux
	return middleware.Chain(mux, chain...)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	requireAdmin := middleware.RequireAdmin(s.deps.IsAdmin)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.deps.Gatherer))
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS())))

	mux.HandleFunc("OPTIONS "+roadmapFunctionPath, s.handleSendRoadmapEmail)
	mux.HandleFunc("POST "+roadmapFunctionPath, s.handleSendRoadmapEmail)

	mux.HandleFunc("POST /auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /auth/signout", s.handleSignOut)
	mux.HandleFunc("POST /enroll", s.handleEnroll)
	mux.HandleFunc("POST /roadmap", s.handleRoadmap)
	mux.Handle("POST /admin/enrollments/{userID}/confirm", requireAdmin(http.HandlerFunc(s.handleConfirmPayment)))

	// Every other GET is resolved by the view router.
	mux.HandleFunc("GET /", s.handlePage)
}

// SweepLoop removes idle rate-limit visitors until ctx is done.
func (s *Server) SweepLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Sweep()
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
