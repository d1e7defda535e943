// Package server exposes the configuration state and rating store over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"modelkombat/internal/apperrors"
	"modelkombat/internal/observability"
	"modelkombat/internal/ratings"
)

// Options configures a Server
type Options struct {
	// JWTSecret verifies bearer tokens
	JWTSecret string
	// LocalUser, when set, authenticates every request as that user
	LocalUser string
	Ratings   *ratings.Store
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Server is the HTTP API
type Server struct {
	engine    *gin.Engine
	pool      *Pool
	ratings   *ratings.Store
	metrics   *observability.Metrics
	logger    *zap.Logger
	secret    string
	localUser string
}

// New creates a Server over pool
func New(pool *Pool, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:    gin.New(),
		pool:      pool,
		ratings:   opts.Ratings,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		secret:    opts.JWTSecret,
		localUser: opts.LocalUser,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	s.engine.Use(gin.Recovery(), s.accessLog)
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/v1", s.authenticate)
	{
		v1.GET("/config", s.getConfig)
		v1.DELETE("/config", s.clearConfig)
		v1.PUT("/credential", s.saveCredential)
		v1.POST("/verify", s.verify)
		v1.POST("/catalog/sync", s.syncCatalog)
		v1.GET("/catalog", s.getCatalog)
		v1.POST("/models/toggle", s.toggleModel)
		v1.PUT("/defaults/refiner", s.setDefaultRefiner)
		v1.PUT("/defaults/judge", s.setDefaultJudge)
		v1.PUT("/defaults/rounds", s.setDefaultRounds)
		v1.GET("/rounds", s.getRounds)

		v1.GET("/responses", s.requireUser, s.listResponses)
		v1.PUT("/responses/:id/rating", s.requireUser, s.rateResponse)
		v1.PUT("/responses/:id/winner", s.requireUser, s.setWinner)
		v1.GET("/ratings/stats", s.requireUser, s.ratingStats)
	}
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
	)
}

func (s *Server) requireUser(c *gin.Context) {
	if userID(c) == "" {
		s.writeError(c, apperrors.ErrNotAuthenticated)
		c.Abort()
		return
	}
	c.Next()
}

// statusFor maps an error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ratings.ErrNotFound):
		return http.StatusNotFound
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindValidationFailure:
		return http.StatusBadRequest
	case apperrors.KindCredentialInvalid:
		return http.StatusUnauthorized
	case apperrors.KindNetworkFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": apperrors.KindOf(err)})
}
