// Package http exposes the console over a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ledgerdesk/internal/amqp"
	"ledgerdesk/internal/analytics"
	"ledgerdesk/internal/cache"
	"ledgerdesk/internal/console"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/settings"
)

// JobPublisher enqueues export jobs for asynchronous processing. Nil
// disables the endpoint.
type JobPublisher interface {
	PublishExportJob(ctx context.Context, job *amqp.ExportJob) error
}

type Server struct {
	http.Server
	console   *console.Console
	settings  *settings.Service
	publisher JobPublisher
	logger    *log.Logger

	rateLimiter    *rateLimiter
	overviewCache  *cache.TTL[analytics.Overview]
	overviewLoader *console.Loader[analytics.Overview]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

type Options struct {
	Addr          string
	Publisher     JobPublisher
	OverviewTTL   time.Duration
	OverviewCache int
}

func NewServer(c *console.Console, st *settings.Service, logger *log.Logger, opts Options) *Server {
	if opts.OverviewTTL <= 0 {
		opts.OverviewTTL = 30 * time.Second
	}
	if opts.OverviewCache <= 0 {
		opts.OverviewCache = 64
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		console:          c,
		settings:         st,
		publisher:        opts.Publisher,
		logger:           logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      newRateLimiter(),
		overviewCache:    cache.NewTTL[analytics.Overview](opts.OverviewTTL, opts.OverviewCache),
		overviewLoader:   console.NewLoader[analytics.Overview](),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("/api/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/api/transactions/export", s.withMiddleware(s.handleTransactionsExport))
	mux.HandleFunc("/api/transactions/", s.withMiddleware(s.handleTransaction))
	mux.HandleFunc("/api/actors", s.withMiddleware(s.handleActors))
	mux.HandleFunc("/api/actors/export", s.withMiddleware(s.handleActorsExport))
	mux.HandleFunc("/api/analytics/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/api/analytics/monthly", s.withMiddleware(s.handleMonthly))
	mux.HandleFunc("/api/analytics/top-actors", s.withMiddleware(s.handleTopActors))
	mux.HandleFunc("/api/analytics/distribution", s.withMiddleware(s.handleDistribution))
	mux.HandleFunc("/api/settings", s.withMiddleware(s.handleSettings))
	mux.HandleFunc("/api/exports", s.withMiddleware(s.handleEnqueueExport))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.overviewCache.CleanExpired(); n > 0 {
				s.logger.Debug("Cache cleanup completed", "entries_removed", n)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the server together with its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, request-id tracing, request
// logging and rate limiting on mutating methods.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
