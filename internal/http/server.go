// Package http exposes stored reports as a small JSON API for dashboards.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/storage"
)

// ReportStore is the read side the API needs from persistence.
type ReportStore interface {
	ListClients(ctx context.Context) ([]storage.ClientRun, error)
	GetReport(ctx context.Context, client string) (core.ReportData, error)
}

var _ ReportStore = (*storage.SQLiteRepository)(nil)

type Server struct {
	http.Server

	store ReportStore

	reportCache  *cache.LRUCache[core.ReportData]
	clientsCache *cache.LRUCache[[]storage.ClientRun]
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store ReportStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:        store,
		reportCache:  cache.NewLRUCache[core.ReportData](100, 5*time.Minute),
		clientsCache: cache.NewLRUCache[[]storage.ClientRun](1, time.Minute),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
	}
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.Register(s.clientsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/clients", s.handleClients)
	mux.HandleFunc("GET /api/reports/{client}", s.handleReport)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, handleRateLimited)

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = limit(handler)
	handler = s.flagSuspicious(handler)
	handler = applog.Middleware(applog.New(applog.Config{Component: applog.ComponentHTTP}))(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// flagSuspicious records requests with traversal or injection markers.
// Flagged requests are logged and counted rather than blocked so that a
// false positive never takes a dashboard down.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// InvalidateClient drops cached responses for one client after a new run is
// stored.
func (s *Server) InvalidateClient(client string) {
	s.reportCache.Delete(client)
	s.clientsCache.Delete(clientsCacheKey)
}

// Shutdown stops the background cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
