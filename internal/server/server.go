package server

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"time"

	"nse_tracker/internal/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Config holds server configuration
type Config struct {
	Addr    string
	Tracker *tracker.Tracker
	Version string
}

// Server represents the HTTP dashboard
type Server struct {
	router  *chi.Mux
	server  *http.Server
	tracker *tracker.Tracker
	page    *template.Template
	version string
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		tracker: cfg.Tracker,
		page:    template.Must(template.New("dashboard").Parse(dashboardHTML)),
		version: cfg.Version,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.router,
		// Refreshes wait on one price lookup per position.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Session-bound routes
	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleDashboard)
		r.Post("/positions", s.handleFormSubmit)

		r.Route("/api", func(r chi.Router) {
			r.Get("/positions", s.handleListPositions)
			r.Post("/positions", s.handleAddPosition)
			r.Get("/symbols", s.handleSymbols)
			r.Delete("/session", s.handleEndSession)
		})
	})
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	log.Printf("INFO: Starting HTTP dashboard on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("INFO: Shutting down HTTP dashboard")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Printf("HTTP %s %s -> %d (%d bytes, %s) [%s]", r.Method, r.URL.Path, ww.Status(),
			ww.BytesWritten(), time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
	})
}
