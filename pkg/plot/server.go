// Package plot serves chart sessions over HTTP: a REST API to drive the
// drawing session, rendered frames, a websocket for live updates and a
// small browser page tying them together.
package plot

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/raykavin/chartdesk/pkg/chart"
	"github.com/raykavin/chartdesk/pkg/feed"
	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/surface"
)

var (
	//go:embed assets
	staticFiles embed.FS
)

const shutdownTimeout = 5 * time.Second

// Server is the chart session server.
type Server struct {
	log       logger.Logger
	sessions  *Sessions
	hub       *Hub
	router    chi.Router
	debug     bool
	anchoring chart.Anchoring
	refresh   string
	symbol    string
	cron      *cron.Cron
	indexHTML *template.Template
	script    []byte
}

// Option configures a Server.
type Option func(*Server)

// WithDebug serves the browser script unminified.
func WithDebug() Option {
	return func(s *Server) {
		s.debug = true
	}
}

// WithAnchoring selects how session views place annotations.
func WithAnchoring(a chart.Anchoring) Option {
	return func(s *Server) {
		s.anchoring = a
	}
}

// WithRefresh reloads every session on the given cron schedule, for example "@every 1m".
func WithRefresh(spec string) Option {
	return func(s *Server) {
		s.refresh = spec
	}
}

// WithDefaultSymbol preselects a symbol on the index page.
func WithDefaultSymbol(symbol string) Option {
	return func(s *Server) {
		s.symbol = symbol
	}
}

// New creates a server loading series through loader.
func New(loader *feed.Loader, log logger.Logger, options ...Option) (*Server, error) {
	s := &Server{log: log, symbol: "AAPL"}
	for _, option := range options {
		option(s)
	}

	var err error
	s.indexHTML, err = template.ParseFS(staticFiles, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	js, err := staticFiles.ReadFile("assets/js/main.js")
	if err != nil {
		return nil, fmt.Errorf("failed to read chart script: %w", err)
	}

	result := api.Transform(string(js), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !s.debug,
		MinifyIdentifiers: !s.debug,
		MinifyWhitespace:  !s.debug,
	})
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("chart script transform failed: %s", result.Errors[0].Text)
	}
	s.script = result.Code

	if s.refresh != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.refresh, s.refreshSessions); err != nil {
			return nil, fmt.Errorf("invalid refresh schedule %q: %w", s.refresh, err)
		}
	}

	s.sessions = NewSessions(loader, s.anchoring, log)
	s.hub = NewHub(s.sessions, log)
	s.router = s.routes()

	return s, nil
}

// Sessions exposes the session registry.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(s.log))
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("chartdesk", "1.0.0")
	humaAPI := humachi.New(router, cfg)

	registerSessionHandlers(humaAPI, s)
	registerDrawingHandlers(humaAPI, s)

	router.Get("/", s.handleIndex)
	router.Get("/health", s.handleHealth)
	router.Get("/assets/chart.js", s.handleScript)
	router.Get("/ws", s.hub.HandleWebSocket)
	router.Get("/sessions/{id}/frame.png", s.handleFrame(surface.PNG))
	router.Get("/sessions/{id}/frame.svg", s.handleFrame(surface.SVG))

	return router
}

// Run serves on addr until ctx is done, then tears every session down.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cron != nil {
		s.cron.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("chart available at http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}

	s.Close()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops the refresh schedule, disconnects clients and tears down every session.
func (s *Server) Close() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.hub.Close()
	s.sessions.Close()
}

func (s *Server) refreshSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	events := s.sessions.Refresh(ctx)
	for _, e := range events {
		s.hub.Publish(e)
	}
	s.log.Debugf("refreshed %d sessions", len(events))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, err := fmt.Fprintf(w, `{"status":"ok","sessions":%d,"clients":%d}`, s.sessions.Len(), s.hub.Clients())
	if err != nil {
		s.log.WithError(err).Error("failed to write health status")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = s.symbol
	}

	w.Header().Set("Content-Type", "text/html")
	err := s.indexHTML.Execute(w, map[string]any{
		"symbol":    symbol,
		"periods":   feed.Periods,
		"intervals": feed.Intervals,
		"width":     DefaultWidth,
		"height":    DefaultHeight,
	})
	if err != nil {
		s.log.WithError(err).Error("template execution failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	if _, err := w.Write(s.script); err != nil {
		s.log.WithError(err).Debug("script write failed")
	}
}

func (s *Server) handleFrame(format surface.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		var buf bytes.Buffer
		_, _, err = session.Do(func(v *chart.View) error {
			return surface.Encode(&buf, v, format)
		})
		if err != nil {
			s.log.WithError(err).WithField("session", session.ID).Warn("frame render failed")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(buf.Bytes()); err != nil {
			s.log.WithError(err).Debug("frame write failed")
		}
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Debug("http request")
		})
	}
}
