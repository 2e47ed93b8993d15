// Package server exposes the analysis catalog over HTTP.
//
// Routes:
//
//	GET  /healthz                     liveness, no auth
//	GET  /api/stats                   headline counts, optionally filtered
//	GET  /api/analyses                catalog listing
//	GET  /api/analyses/{name}         run one analysis (json|csv|text)
//	GET  /api/pages/{page}            run every analysis on a page
//	POST /api/analyses/{name}/export  run and persist; admin only
//
// Filters are passed as ?filter=<kind>&value=<v>, or ?min_scrap=<n> for the
// scrap threshold, scoped to the page of the analysis they are applied to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"insights/internal/analysis"
	"insights/internal/config"
	"insights/internal/filter"
	"insights/internal/logger"
	"insights/internal/registry"
	"insights/internal/report"
	"insights/internal/table"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
)

// Exporter persists a result and returns the run id and rows written.
type Exporter func(ctx context.Context, res analysis.Result) (runID string, n int64, err error)

// Config controls server startup.
type Config struct {
	Addr string
	// Users may be empty, in which case every request runs as an anonymous
	// viewer.
	Users []config.User
	// ShutdownTimeout bounds graceful shutdown; default 10s.
	ShutdownTimeout time.Duration
}

// Server serves one loaded registry.
type Server struct {
	cfg    Config
	cat    *analysis.Catalog
	reg    *registry.Registry
	export Exporter
	users  map[string]config.User
	router *chi.Mux
}

// New builds the server and its routes. export may be nil, which disables
// the export route.
func New(cfg Config, cat *analysis.Catalog, reg *registry.Registry, export Exporter) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		cat:    cat,
		reg:    reg,
		export: export,
		users:  lo.KeyBy(cfg.Users, func(u config.User) string { return u.Name }),
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", logger.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	logger.L().Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestID, requestLogging(), middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/stats", s.handleStats)
		r.Get("/analyses", s.handleList)
		r.Get("/analyses/{name}", s.handleRun)
		r.Get("/pages/{page}", s.handlePage)
		r.With(requireRole(config.RoleAdmin)).Post("/analyses/{name}/export", s.handleExport)
	})
}

// handleStats reports the headline counts. With ?page= and a filter the
// counts reflect the filtered registry the page would see.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	reg, err := s.filtered(r, analysis.Page(r.URL.Query().Get("page")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg.Stats())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	defs := s.cat.List()
	if p := r.URL.Query().Get("page"); p != "" {
		defs = s.cat.Page(analysis.Page(p))
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, def, err := s.run(r, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.render(w, r, []analysis.Result{res}, map[string]string{def.Name: def.Title})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page := analysis.Page(chi.URLParam(r, "page"))
	defs := s.cat.Page(page)
	if len(defs) == 0 {
		writeError(w, r, fmt.Errorf("%w: page %q", analysis.ErrUnknownAnalysis, page))
		return
	}
	reg, err := s.filtered(r, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := s.cat.RunPage(r.Context(), page, reg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	titles := lo.SliceToMap(defs, func(d analysis.Definition) (string, string) { return d.Name, d.Title })
	s.render(w, r, results, titles)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.export == nil {
		http.Error(w, "export is not configured", http.StatusNotImplemented)
		return
	}
	res, _, err := s.run(r, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	runID, n, err := s.export(r.Context(), res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"name":   res.Name,
		"run_id": runID,
		"rows":   n,
	})
}

// run resolves the analysis, applies the request filter scoped to its page,
// and executes it.
func (s *Server) run(r *http.Request, name string) (analysis.Result, analysis.Definition, error) {
	def, ok := s.cat.Lookup(name)
	if !ok {
		return analysis.Result{}, def, fmt.Errorf("%w: %q", analysis.ErrUnknownAnalysis, name)
	}
	reg, err := s.filtered(r, def.Page)
	if err != nil {
		return analysis.Result{}, def, err
	}
	res, err := s.cat.Run(r.Context(), name, reg)
	return res, def, err
}

func (s *Server) filtered(r *http.Request, page analysis.Page) (*registry.Registry, error) {
	q := r.URL.Query()
	kind, value := q.Get("filter"), q.Get("value")
	if v := q.Get("min_scrap"); v != "" && kind == "" {
		kind, value = string(filter.MinScrap), v
	}
	f, err := filter.Parse(kind, value)
	if err != nil {
		return nil, badRequest{err}
	}
	if f.Kind == filter.None {
		return s.reg, nil
	}
	reg, err := filter.Apply(s.reg, filter.ForPage(page, f))
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, results []analysis.Result, titles map[string]string) {
	format := report.JSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := report.ParseFormat(v)
		if err != nil {
			writeError(w, r, badRequest{err})
			return
		}
		format = f
	}
	w.Header().Set("Content-Type", format.ContentType())
	if err := report.Write(w, format, results, titles); err != nil {
		logger.L().Warn("write response", logger.ErrorF(err), logger.String("request_id", RequestID(r.Context())))
	}
}

// badRequest marks errors caused by request parameters.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrUnknownAnalysis):
		return http.StatusNotFound
	case errors.Is(err, table.ErrMissingTable), errors.Is(err, table.ErrMissingColumn),
		errors.Is(err, table.ErrInvalidMeasure), errors.Is(err, table.ErrJoinKeyMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logger.L().With(logger.String("request_id", RequestID(r.Context())), logger.ErrorF(err))
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logger.Int("status", status))
	} else {
		log.Info("request rejected", logger.Int("status", status))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
