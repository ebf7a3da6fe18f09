// Package web provides the HTTP API and the progress pages.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/traintrack/internal/auth"
	"github.com/JonMunkholm/traintrack/internal/config"
	"github.com/JonMunkholm/traintrack/internal/core"
	"github.com/JonMunkholm/traintrack/internal/upstream"
	mw "github.com/JonMunkholm/traintrack/internal/web/middleware"
)

// UpstreamLogin stores fresh task-API and LMS tokens.
type UpstreamLogin interface {
	Login(ctx context.Context, cred upstream.Credentials) (upstream.LoginResult, error)
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Service  *core.Service
	Sessions *auth.Manager
	Users    auth.UserStore
	Upstream UpstreamLogin
	// Ping reports database health; nil means always healthy.
	Ping func(ctx context.Context) error
}

// Server is the HTTP server.
type Server struct {
	service  *core.Service
	sessions *auth.Manager
	users    auth.UserStore
	upstream UpstreamLogin
	ping     func(ctx context.Context) error
	cfg      *config.Config
	validate *validator.Validate

	router        *chi.Mux
	server        *http.Server
	limiter       *rateLimiter
	uploadLimiter *rateLimiter
}

// NewServer creates a Server and wires its routes.
func NewServer(deps Deps, cfg *config.Config) *Server {
	s := &Server{
		service:  deps.Service,
		sessions: deps.Sessions,
		users:    deps.Users,
		upstream: deps.Upstream,
		ping:     deps.Ping,
		cfg:      cfg,
		validate: validator.New(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "HX-Request"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	authn := mw.Authenticate(s.sessions)
	teacher := mw.RequireRole(auth.RoleTeacher)
	admin := mw.RequireRole(auth.RoleAdmin)

	s.router.With(authn).Get("/courses/{courseID}", s.handleProgressPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/auth/me", s.handleMe)
			r.With(admin).Post("/upstream/login", s.handleUpstreamLogin)

			r.Get("/courses", s.handleListCourses)
			r.Get("/courses/{courseID}/progress", s.handleCourseProgress)
			r.Get("/courses/{courseID}/export", s.handleCourseExport)

			r.Route("/scores", func(r chi.Router) {
				r.Get("/template", s.handleScoreTemplate)
				r.Get("/imports", s.handleListImports)
				r.Post("/bulk", s.handleBulkScores)
				r.Group(func(r chi.Router) {
					r.Use(teacher)
					if s.cfg.Rate.Enabled && s.cfg.Rate.UploadLimit > 0 {
						s.uploadLimiter = newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute)
						r.Use(s.uploadLimiter.middleware)
					}
					r.Post("/preview", s.handleScorePreview)
					r.Post("/import", s.handleScoreImport)
				})
			})

			r.Route("/standards", func(r chi.Router) {
				r.Get("/", s.handleListStandards)
				r.Get("/{category}", s.handleGetStandard)
				r.With(admin).Put("/{category}", s.handlePutStandard)
				r.With(admin).Delete("/{category}", s.handleDeleteStandard)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(admin)
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Delete("/{username}", s.handleDeleteUser)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range []*rateLimiter{s.limiter, s.uploadLimiter} {
		if rl != nil {
			rl.stop()
		}
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"imports": s.service.ImportLimiterStatus(),
	}
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			slog.Warn("health check: database unreachable", "error", err)
			status["status"] = "degraded"
			status["database"] = "unreachable"
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(status)
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, status)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window limiter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware keys on RemoteAddr, which TrustedRealIP has already rewritten
// for requests from trusted proxies.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.MapError(errRateLimited), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
