// Package httpserver holds the gin setup shared by the cart, coupon and
// storefront services.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/metrics"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/patterns"
)

const requestIDHeader = "X-Request-ID"

// NewRouter returns an engine with recovery, request logging, Prometheus
// middleware, /health and /metrics.
func NewRouter(service string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(service), metrics.PrometheusMiddleware(service))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": service})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func requestLogger(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(requestIDHeader, rid)

		c.Next()

		entry := log.WithFields(log.Fields{
			"service":    service,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": rid,
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}

// Abort writes an error body and stops the handler chain.
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: msg, Message: msg})
}

// Run serves handler on addr until SIGINT or SIGTERM, then shuts down
// gracefully.
func Run(addr, service string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Infof("%s starting", service)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Infof("%s shutting down", service)
	}

	ctx, cancel := patterns.WithTimeout(context.Background(), patterns.SlowServiceTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
