package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finarth/internal/agent"
	"finarth/internal/auth"
	"finarth/internal/cache"
	"finarth/internal/log"
	"finarth/internal/market"
	"finarth/internal/middleware/ratelimit"
	"finarth/internal/middleware/security"
	"finarth/internal/middleware/trace"
	"finarth/internal/services"
)

// Pinger reports database reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the handlers. Advisor, Market and Sessions may be nil.
type Deps struct {
	Users     *services.UserService
	Portfolio *services.PortfolioService
	Advisor   *agent.Advisor
	Market    *market.Service
	Tokens    *auth.TokenManager
	Sessions  *cache.SessionCache
	DB        Pinger
}

type Options struct {
	Addr               string
	CORSOrigin         string
	RateLimitPerMinute int
	// AuthRequired makes user-scoped routes demand a bearer token for that user.
	AuthRequired bool
}

type Server struct {
	http.Server
	deps    Deps
	opts    Options
	logger  *log.Logger
	started time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Deps, logger *log.Logger) *Server {
	httpLogger := logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		deps:     deps,
		opts:     opts,
		logger:   httpLogger,
		started:  time.Now(),
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(httpLogger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := http.NewServeMux()
	api.HandleFunc("POST /api/users/register", s.handleRegister)
	api.HandleFunc("POST /api/users/login", s.handleLogin)
	api.HandleFunc("GET /api/users/verify", s.handleVerify)
	api.HandleFunc("POST /api/users/onboarding", s.handleOnboarding)
	api.HandleFunc("GET /api/users/{userId}", s.handleProfile)

	api.HandleFunc("GET /api/portfolio/{userId}/holdings", s.handleListHoldings)
	api.HandleFunc("POST /api/portfolio/{userId}/holdings", s.handleCreateHolding)
	api.HandleFunc("PUT /api/portfolio/{userId}/holdings/{holdingId}", s.handleUpdateHolding)
	api.HandleFunc("DELETE /api/portfolio/{userId}/holdings/{holdingId}", s.handleDeleteHolding)
	api.HandleFunc("GET /api/portfolio/{userId}/summary", s.handleSummary)

	api.HandleFunc("POST /api/goals/plan", s.handlePlanGoal)
	api.HandleFunc("POST /api/agent/generate-insight", s.handleGenerateInsight)
	api.HandleFunc("GET /api/market/quotes", s.handleQuotes)

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldComponent, log.ComponentRateLimit,
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}
	mux.Handle("/api/", s.limiter.Middleware(detector.ExtractClientIP, onLimit)(s.authenticate(api)))

	var handler http.Handler = mux
	handler = security.NewCORS(opts.CORSOrigin).Handler(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Handler(handler)
	handler = s.screen(handler)
	handler = s.tracer.Handler(handler)
	handler = log.Middleware(httpLogger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// the advisor makes up to three model calls per request
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// screen logs requests that look like scanners or path probes.
func (s *Server) screen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
