// Package api exposes analysis, annotation, audit and export over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/export"
	"github.com/ppiankov/intralign/internal/pipeline"
)

// Server is the HTTP front of one annotation store
type Server struct {
	echo     *echo.Echo
	analyzer *pipeline.Analyzer
	store    *annotation.Store
	exporter *export.Service
	logger   *zap.Logger
	version  string
	started  time.Time
}

// NewServer wires routes and middleware. bodyLimit is an echo size string
// such as "2M"; empty means no limit.
func NewServer(analyzer *pipeline.Analyzer, store *annotation.Store, logger *zap.Logger, version, bodyLimit string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(requestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	if bodyLimit != "" {
		e.Use(middleware.BodyLimit(bodyLimit))
	}

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		store:    store,
		exporter: export.NewService(store),
		logger:   logger,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.analyze)
	v1.GET("/diagnostics", s.diagnostics)

	v1.GET("/sessions", s.listSessions)
	v1.POST("/sessions/:session/annotations", s.createAnnotation)
	v1.GET("/sessions/:session/annotations", s.listAnnotations)
	v1.GET("/sessions/:session/audit", s.audit)
	v1.GET("/sessions/:session/export", s.export)

	v1.GET("/annotations/:id", s.getAnnotation)
	v1.POST("/annotations/:id/transition", s.transition)
}

// ServeHTTP lets the server be mounted or tested without a listener
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("api shutting down")
	return s.echo.Shutdown(shutdownCtx)
}
