// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ragqa/internal/domain"
	"ragqa/internal/logger"
	"ragqa/internal/metrics"
)

// Pipeline is the subset of the question answering pipeline the server needs.
type Pipeline interface {
	QueryTopK(ctx context.Context, q string, k int) (domain.Result, error)
	Rebuild(ctx context.Context) (domain.Status, error)
	Status() domain.Status
}

type Server struct {
	pipeline Pipeline
	log      logger.Logger
	metrics  *metrics.Recorder
	router   *gin.Engine
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const errInvalidBody = "invalid request body"

func New(p Pipeline, log logger.Logger, rec *metrics.Recorder) *Server {
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{pipeline: p, log: log, metrics: rec}
	s.router = s.routes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors.Default())
	r.GET("/", s.handleIndex)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.POST("/query", s.handleQuery)
	r.POST("/rebuild", s.handleRebuild)
	return r
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "RAG API service is running",
		"endpoints": []string{"/query", "/rebuild", "/healthz", "/metrics"},
		"status":    s.pipeline.Status(),
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errInvalidBody})
		return
	}
	res, err := s.pipeline.QueryTopK(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: domain.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRebuild(c *gin.Context) {
	st, err := s.pipeline.Rebuild(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: domain.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, st)
}

func statusFor(err error) int {
	if domain.IsRequestError(err) {
		return http.StatusBadRequest
	}
	return http.StatusServiceUnavailable
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "address", addr)
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server shutdown completed")
	return nil
}
