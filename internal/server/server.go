// Package server exposes schema inspection over HTTP.
//
//	GET /healthz                              liveness
//	GET /v1/schema?schema=NAME&format=FORMAT  fresh snapshot per request
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/dbinspect/internal/config"
	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/koustreak/dbinspect/internal/schema"
)

// InspectFunc produces a snapshot of schemaName.
type InspectFunc func(ctx context.Context, schemaName string) (*schema.Snapshot, error)

// Server serves snapshots produced by an InspectFunc.
type Server struct {
	cfg           config.ServerConfig
	defaultSchema string
	inspect       InspectFunc
	log           *logger.Logger
}

// New builds a Server. defaultSchema is used when a request names none.
func New(cfg config.ServerConfig, defaultSchema string, inspect InspectFunc, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	return &Server{cfg: cfg, defaultSchema: defaultSchema, inspect: inspect, log: log}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/schema", s.handleSchema)
	})
	return r
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	format, ok := schema.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		s.writeError(w, r, errs.Newf(errs.ErrKindInvalidInput, "unknown format %q", r.URL.Query().Get("format")))
		return
	}
	schemaName := r.URL.Query().Get("schema")
	if schemaName == "" {
		schemaName = s.defaultSchema
	}

	ctx := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger().WithContext(r.Context())
	snap, err := s.inspect(ctx, schemaName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if err := schema.Encode(w, snap, format); err != nil {
		s.log.With().Err(err).Logger().Error("encode snapshot")
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		fields := map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
			"kind":       kind.String(),
		}
		if q := errs.QueryOf(err); q != "" {
			fields["query"] = strings.Join(strings.Fields(q), " ")
		}
		s.log.ErrorWith("inspection failed", err, fields)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: kind.String(), Message: err.Error()})
}

// statusFor maps an error kind to the HTTP status reported to clients.
func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindInvalidInput, errs.ErrKindUnsupportedScheme:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindNotImplemented:
		return http.StatusNotImplemented
	case errs.ErrKindConnectionFailed, errs.ErrKindQueryFailed:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Event().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
