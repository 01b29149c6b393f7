// Package web serves a browser preview of the current agenda.
package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	appLog "agendamail/internal/log"
	"agendamail/internal/pipeline"
)

// Server exposes /health and /agenda. The agenda handler rebuilds the
// pipeline output on demand, behind a short TTL cache so refresh-happy
// browsers do not hammer the calendar sources.
type Server struct {
	driver *pipeline.Driver
	mux    *http.ServeMux

	auth *BasicAuth

	cacheMu sync.RWMutex
	cache   *agendaCache
}

// BasicAuth enables HTTP Basic Authentication on all endpoints except
// /health.
type BasicAuth struct {
	Username string
	Password string
}

type agendaCache struct {
	html      string
	updatedAt time.Time
}

const agendaCacheTTL = 30 * time.Second

// NewServer constructs a Server around the given driver. auth may be nil.
func NewServer(driver *pipeline.Driver, auth *BasicAuth) *Server {
	s := &Server{
		driver: driver,
		mux:    http.NewServeMux(),
		auth:   auth,
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/agenda", s.handleAgenda)
	return s
}

// Handler returns the HTTP handler, wrapped with basic auth when enabled.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.auth != nil && s.auth.Username != "" && s.auth.Password != "" {
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, s.auth.Username) || !secureCompare(p, s.auth.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="agendamail", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	s.cacheMu.RLock()
	c := s.cache
	s.cacheMu.RUnlock()
	if c != nil && now.Sub(c.updatedAt) < agendaCacheTTL {
		writeHTML(w, c.html)
		return
	}

	result := s.driver.Build(r.Context(), time.Time{})

	s.cacheMu.Lock()
	s.cache = &agendaCache{html: result.HTML, updatedAt: time.Now()}
	s.cacheMu.Unlock()

	writeHTML(w, result.HTML)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		appLog.Error("failed to write agenda response", err)
	}
}

// Run serves on listen until ctx is canceled.
func Run(ctx context.Context, listen string, driver *pipeline.Driver, auth *BasicAuth) error {
	s := NewServer(driver, auth)
	srv := &http.Server{Addr: listen, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting preview server", "listen", "http://"+listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
