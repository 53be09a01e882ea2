package router

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

// Router is a chi mux with request IDs, panic recovery and the colored
// request log installed.
type Router struct {
	chi.Router
}

// New creates a router logging requests to stderr
func New() *Router {
	return NewWithLogOutput(os.Stderr)
}

// NewWithLogOutput creates a router logging requests to w
func NewWithLogOutput(w io.Writer) *Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(RequestLogger(log.New(w, "", 0)))
	mux.Use(middleware.Recoverer)
	return &Router{Router: mux}
}

// ServerConfig holds the HTTP server timeouts
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server wraps http.Server for graceful shutdown
type Server struct {
	srv *http.Server
}

// NewServer binds the router to an http.Server
func (r *Router) NewServer(cfg ServerConfig) *Server {
	return &Server{srv: &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}}
}

// --- Start server ---

// Start serves until Shutdown is called. It returns nil after a graceful
// shutdown.
func (s *Server) Start() error {
	log.Printf("🚀 Server started on %shttp://%s%s", colorGreen, s.srv.Addr, colorReset)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// RequestLogger logs one colored line per request
func RequestLogger(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(lrw, req)

			duration := time.Since(start)
			l.Printf("%s[%s]%s %s%s%s %s %s%d%s %s(%v)%s %s",
				colorCyan, start.Format("2006-01-02 15:04:05"), colorReset,
				methodColor(req.Method), req.Method, colorReset,
				req.URL.Path,
				statusColor(lrw.statusCode), lrw.statusCode, colorReset,
				colorBlue, duration, colorReset,
				middleware.GetReqID(req.Context()),
			)
		})
	}
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

// --- Color helpers ---
func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut:
		return colorYellow
	case http.MethodPatch:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
