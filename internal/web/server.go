// Package web provides the HTTP server and handlers for the service
// provider directory API.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/serviapp/serviapp/internal/auth"
	"github.com/serviapp/serviapp/internal/blob"
	"github.com/serviapp/serviapp/internal/config"
	"github.com/serviapp/serviapp/internal/core"
	"github.com/serviapp/serviapp/internal/logging"
	"github.com/serviapp/serviapp/internal/metrics"
	"github.com/serviapp/serviapp/internal/web/middleware"
)

// Server is the HTTP server for the provider directory.
type Server struct {
	service *core.Service
	auth    *auth.Service
	blobs   blob.Store
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	selMu      sync.Mutex
	selections map[string]*core.SelectionSet
}

// NewServer wires the domain service, identity service and configuration
// into a routed HTTP server.
func NewServer(service *core.Service, authSvc *auth.Service, blobs blob.Store, cfg *config.Config) *Server {
	s := &Server{
		service:    service,
		auth:       authSvc,
		blobs:      blobs,
		cfg:        cfg,
		router:     chi.NewRouter(),
		selections: make(map[string]*core.SelectionSet),
	}

	// Selections are scoped to the session token; drop them when the
	// session ends, however it ends.
	authSvc.Subscribe(func(ev auth.Event) {
		if ev.Type != auth.EventSignedOut {
			return
		}
		s.dropSelection(ev.Token)
		if ev.Idle {
			metrics.IdleLogoutsTotal.Inc()
		}
	})

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)

	// Validate() rejects bad TRUSTED_PROXIES entries before a server is built.
	proxies, _ := s.cfg.Server.TrustedProxyNets()
	s.router.Use(middleware.RealIP(proxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Compress(5))
	s.router.Use(chimiddleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}

	// Resolve the bearer token (when present) into a session context.
	s.router.Use(s.sessionMiddleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Uploaded logos, when stored on the local filesystem.
	if fsStore, ok := s.blobs.(*blob.FS); ok {
		s.router.Handle("/logos/*", http.StripPrefix("/logos/",
			http.FileServer(http.Dir(fsStore.Dir()))))
	}

	s.router.Route("/api", func(r chi.Router) {
		// Identity
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/signout", s.handleSignOut)
		r.Get("/session", s.handleSession)
		r.Put("/usuarios/{uid}/papel", s.handleSetUserRole)

		// Provider records
		r.Get("/servicos", s.handleListServices)
		r.Post("/servicos", s.handleCreateService)
		r.Get("/servicos/{id}", s.handleGetService)
		r.Put("/servicos/{id}", s.handleUpdateService)
		r.Delete("/servicos/{id}", s.handleDeleteService)

		// Contact selection and export
		r.Post("/selecao/toggle", s.handleSelectionToggle)
		r.Post("/selecao/todos", s.handleSelectionAll)
		r.Post("/selecao/limpar", s.handleSelectionClear)
		r.Get("/selecao", s.handleSelectionGet)
		r.Get("/exportar", s.handleExport)

		// Reference data
		r.Get("/categorias", s.handleCategories)
		r.Get("/estados", s.handleStates)
		r.Get("/estados/{uf}/cidades", s.handleCities)
	})
}

// sessionMiddleware resolves the Authorization bearer token into a
// SessionContext. Requests without a token proceed as anonymous; a token
// that fails validation is rejected so clients learn their session died.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), core.Anonymous(), "")))
			return
		}

		identity, err := s.auth.IdentityFromToken(token)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		sess, err := s.service.Resolve(r.Context(), &identity)
		if err != nil {
			logging.FromContext(r.Context()).Warn("session resolve degraded",
				"uid", identity.UID, "error", err)
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess, token)))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// selection returns the selection set for the given session token,
// creating it on first use.
func (s *Server) selection(token string) *core.SelectionSet {
	s.selMu.Lock()
	defer s.selMu.Unlock()
	sel, ok := s.selections[token]
	if !ok {
		sel = core.NewSelectionSet()
		s.selections[token] = sel
	}
	return sel
}

func (s *Server) dropSelection(token string) {
	s.selMu.Lock()
	delete(s.selections, token)
	s.selMu.Unlock()
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
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
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
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1,
			lastReset: time.Now(),
		}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr is already rewritten by the RealIP middleware for
		// requests arriving through a trusted proxy; reading the header
		// here would let any client pick its own bucket.
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "muitas requisições",
				Message: "Muitas requisições. Aguarde um instante e tente novamente.",
				Code:    "RATE429",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
