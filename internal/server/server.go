// Package server exposes a compiled form over HTTP. It stays a thin
// adapter: URL and session plumbing on the way in, a Renderer (or JSON
// fallback) on the way out; everything else belongs to the engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/arbor/pkg/engine"
	"github.com/aretw0/arbor/pkg/ports"
)

const sessionCookie = "arbor-session"

// Server routes form-page requests to the engine's page controllers.
type Server struct {
	model    *engine.Model
	slug     string
	status   string
	services engine.Services
	renderer ports.Renderer
	logger   *slog.Logger

	pageViews   *prometheus.CounterVec
	submissions prometheus.Counter
	registry    *prometheus.Registry
}

type Option func(*Server)

// WithRenderer plugs in an HTML view renderer. Without one, responses
// are the render model as JSON.
func WithRenderer(r ports.Renderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithFormStatus marks the served form as "live" or "draft"; the status
// partitions session state.
func WithFormStatus(status string) Option {
	return func(s *Server) {
		s.status = status
	}
}

// New creates a server for one compiled form.
func New(model *engine.Model, slug string, services engine.Services, opts ...Option) *Server {
	s := &Server{
		model:    model,
		slug:     slug,
		status:   "live",
		services: services,
		logger:   slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pageViews = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbor_page_views_total",
		Help: "Form page requests by path and method.",
	}, []string{"path", "method"})
	s.submissions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbor_submissions_total",
		Help: "Completed form submissions.",
	})
	s.registry.MustRegister(s.pageViews, s.submissions)

	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Get("/"+s.slug+"/*", s.handlePage)
	r.Post("/"+s.slug+"/*", s.handlePage)
	r.Get("/"+s.slug, s.redirectToStart)

	return r
}

func (s *Server) redirectToStart(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.pageURL(s.model.StartPath()), http.StatusFound)
}

// resolvePage maps a URL suffix onto a page and an optional trailing
// item segment (repeat item ids and the repeat list summary).
func (s *Server) resolvePage(suffix string) (engine.Page, string) {
	path := "/" + strings.Trim(suffix, "/")
	if page := s.model.Page(path); page != nil {
		return page, ""
	}
	if i := strings.LastIndex(path, "/"); i > 0 {
		if page := s.model.Page(path[:i]); page != nil {
			return page, path[i+1:]
		}
	}
	return nil, ""
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, itemID := s.resolvePage(chi.URLParam(r, "*"))
	if page == nil {
		http.NotFound(w, r)
		return
	}
	s.pageViews.WithLabelValues(page.Path(), r.Method).Inc()

	req := &engine.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		ItemID: itemID,
		Query:  r.URL.Query(),
		Key:    s.sessionKey(w, r),
	}

	var resp *engine.Response
	var err error
	if r.Method == http.MethodPost {
		payload, decodeErr := decodePayload(r)
		if decodeErr != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req.Params, req.Payload = engine.ParseParams(payload)
		resp, err = page.HandlePost(r.Context(), s.model, req, s.services)
	} else {
		resp, err = page.HandleGet(r.Context(), s.model, req, s.services)
	}
	if err != nil {
		s.logger.Error("page handler failed", "path", page.Path(), "err", err)
		http.Error(w, "something went wrong", http.StatusInternalServerError)
		return
	}

	s.writeResponse(w, r, page, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, page engine.Page, resp *engine.Response) {
	switch {
	case resp.Redirect != "":
		if resp.Redirect == s.model.StatusPath() && r.Method == http.MethodPost {
			s.submissions.Inc()
		}
		http.Redirect(w, r, s.pageURL(resp.Redirect), resp.Status)

	case resp.View != "" && s.renderer != nil:
		body, err := s.renderer.Render(r.Context(), resp.View, resp.Model)
		if err != nil {
			s.logger.Error("render failed", "view", resp.View, "err", err)
			http.Error(w, "something went wrong", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(resp.Status)
		_, _ = w.Write(body)

	case resp.View != "":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.Status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"view":  resp.View,
			"model": resp.Model,
		})

	default:
		http.Error(w, http.StatusText(resp.Status), resp.Status)
	}
}

// pageURL prefixes an engine page path with the form slug.
func (s *Server) pageURL(path string) string {
	return "/" + s.slug + path
}

// sessionKey reads the session cookie, minting one on first contact.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) ports.SessionKey {
	var sessionID string
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		sessionID = cookie.Value
	} else {
		sessionID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return ports.SessionKey{SessionID: sessionID, FormStatus: s.status, FormSlug: s.slug}
}

// decodePayload accepts both form-encoded and JSON bodies.
func decodePayload(r *http.Request) (map[string]any, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		payload := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("failed to decode body: %w", err)
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	payload := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) == 1 {
			payload[key] = values[0]
			continue
		}
		many := make([]any, len(values))
		for i, v := range values {
			many[i] = v
		}
		payload[key] = many
	}
	return payload, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr, "form", s.slug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
