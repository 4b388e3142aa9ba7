package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/streetworks-impact/internal/project"
)

// paramError is the rejection body for a malformed path parameter.
type paramError struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	ProjectID string `json:"project_id,omitempty"`
}

// validateParams rejects requests whose path parameters fail the
// per-parameter format rules. Must run after routing.
func validateParams(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		if rctx != nil {
			for i, name := range rctx.URLParams.Keys {
				value := rctx.URLParams.Values[i]
				if err := project.ValidateParam(name, value); err != nil {
					zap.L().Warn("rejected path parameter",
						zap.String("param", name),
						zap.String("path", r.URL.Path),
						zap.String("remote", clientIP(r)),
					)
					body := paramError{
						Error:   "Invalid parameter format",
						Message: fmt.Sprintf("Parameter '%s' contains invalid characters or format", name),
					}
					if name == "project_id" {
						body.ProjectID = value
					}
					writeJSON(w, http.StatusBadRequest, body)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientLimiter keeps one token bucket per client IP. Buckets idle for a
// full window are dropped on the next sweep.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	every     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(requests int, window time.Duration) *clientLimiter {
	return &clientLimiter{
		clients: make(map[string]*clientBucket),
		every:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
		window:  window,
		now:     time.Now,
	}
}

func (l *clientLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) > l.window {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// rateLimit enforces the per-client limit. Liveness and the endpoint
// directory are exempt.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/" {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.log.Warn("rate limit exceeded", zap.String("remote", ip), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(s.opts.RateWindow.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				writeFailure(w, http.StatusInternalServerError, "Internal server error", chi.URLParam(r, "project_id"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
