// Package api exposes invoice processing over HTTP. Each request is processed
// independently against the tax configuration loaded at startup.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"facturas/internal/logger"
	"facturas/internal/pipeline"
)

// Server routes HTTP requests to a pipeline processor.
type Server struct {
	processor *pipeline.Processor
	gatherer  prometheus.Gatherer
	router    *gin.Engine
	log       zerolog.Logger
}

// Option customises a Server.
type Option func(*Server)

// WithGatherer serves metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer builds the router for processor.
func NewServer(processor *pipeline.Processor, opts ...Option) *Server {
	s := &Server{
		processor: processor,
		gatherer:  prometheus.DefaultGatherer,
		log:       logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), ErrorHandler())

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/invoices/process", s.ProcessInvoice)
	v1.POST("/invoices/classify", s.ClassifyInvoice)
	v1.GET("/taxconfig", s.TaxConfig)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
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

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
