package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendgist/internal/agent/batch"
	"github.com/trendgist/internal/agent/publisher"
	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/metrics"
	"github.com/trendgist/internal/pipeline"
	"github.com/trendgist/pkg/logger"
)

// Publisher runs one publish request
type Publisher interface {
	Publish(ctx context.Context, req publisher.Request) *publisher.Response
}

// BatchRunner runs one batch over unpublished trends
type BatchRunner interface {
	Run(ctx context.Context) (*batch.Summary, error)
}

// Server exposes the publish and batch trigger endpoints
type Server struct {
	publisher Publisher
	batch     BatchRunner
	auth      *batch.Authenticator
	addr      string
	engine    *gin.Engine
	log       *logger.Logger
}

// NewServer creates the HTTP server and registers routes
func NewServer(
	cfg config.ServerConfig,
	pub Publisher,
	runner BatchRunner,
	auth *batch.Authenticator,
	log *logger.Logger,
) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		publisher: pub,
		batch:     runner,
		auth:      auth,
		addr:      cfg.Addr,
		engine:    gin.New(),
		log:       log.WithComponent("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/gists", s.publishGist)
	v1.POST("/batch", s.requireBatchAuth(), s.runBatch)
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.log.Info().Msg("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "trendgist"})
}

func (s *Server) publishGist(c *gin.Context) {
	var req publisher.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		pe := pipeline.Validation(pipeline.StageRequest, pipeline.CodeInvalidRequest,
			fmt.Sprintf("invalid request body: %v", err))
		c.JSON(pe.StatusCode(), &publisher.Response{
			Error: pe.Message,
			Code:  pe.Code,
			Stage: string(pe.Stage),
		})
		return
	}

	resp := s.publisher.Publish(c.Request.Context(), req)
	c.JSON(pipeline.ClampStatus(resp.StatusCode), resp)
}

func (s *Server) runBatch(c *gin.Context) {
	summary, err := s.batch.Run(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Batch run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) requireBatchAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.auth.Authorize(c.GetHeader("Authorization"), c.GetHeader(batch.SecretHeader))
		if err != nil {
			s.log.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("Rejected batch trigger")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}
