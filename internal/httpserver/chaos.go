package httpserver

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/metrics"
)

// ErrChaos is the simulated failure.
var ErrChaos = errors.New("simulated failure")

// Chaos injects failures and delays so the storefront's breakers and
// bulkheads can be exercised against a live service.
type Chaos struct {
	service     string
	failureRate float64
	slowMin     time.Duration
	slowMax     time.Duration

	mu       sync.RWMutex
	enabled  bool
	slowMode bool
}

// NewChaos creates a disabled chaos switch. failureRate applies while
// failure mode is enabled; slow mode delays each request by a random
// duration in [slowMin, slowMax).
func NewChaos(service string, failureRate float64, slowMin, slowMax time.Duration) *Chaos {
	return &Chaos{service: service, failureRate: failureRate, slowMin: slowMin, slowMax: slowMax}
}

// Register mounts the chaos control endpoints under group.
func (ch *Chaos) Register(group gin.IRouter) {
	group.POST("/enable", func(c *gin.Context) {
		ch.SetEnabled(true)
		log.WithField("service", ch.service).Info("Chaos mode ENABLED")
		c.JSON(http.StatusOK, gin.H{"message": "Chaos mode enabled", "failure_rate": ch.failureRate})
	})
	group.POST("/disable", func(c *gin.Context) {
		ch.SetEnabled(false)
		ch.SetSlowMode(false)
		log.WithField("service", ch.service).Info("Chaos mode DISABLED")
		c.JSON(http.StatusOK, gin.H{"message": "Chaos mode disabled"})
	})
	group.POST("/slow", func(c *gin.Context) {
		ch.SetSlowMode(true)
		log.WithField("service", ch.service).Info("Slow mode ENABLED")
		c.JSON(http.StatusOK, gin.H{
			"message": "Slow mode enabled",
			"min_ms":  ch.slowMin.Milliseconds(),
			"max_ms":  ch.slowMax.Milliseconds(),
		})
	})
	group.POST("/slow/disable", func(c *gin.Context) {
		ch.SetSlowMode(false)
		log.WithField("service", ch.service).Info("Slow mode DISABLED")
		c.JSON(http.StatusOK, gin.H{"message": "Slow mode disabled"})
	})
	group.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":         ch.service,
			"chaos_enabled":   ch.Enabled(),
			"chaos_slow_mode": ch.SlowMode(),
			"timestamp":       time.Now().Format(time.RFC3339),
		})
	})
}

func (ch *Chaos) SetEnabled(v bool) {
	ch.mu.Lock()
	ch.enabled = v
	ch.mu.Unlock()
	metrics.ChaosFailureRate.WithLabelValues(ch.service).Set(boolGauge(v))
}

func (ch *Chaos) SetSlowMode(v bool) {
	ch.mu.Lock()
	ch.slowMode = v
	ch.mu.Unlock()
	metrics.ChaosSlowMode.WithLabelValues(ch.service).Set(boolGauge(v))
}

func (ch *Chaos) Enabled() bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.enabled
}

func (ch *Chaos) SlowMode() bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.slowMode
}

// Simulate sleeps in slow mode and fails at the configured rate in failure
// mode.
func (ch *Chaos) Simulate() error {
	if ch.SlowMode() && ch.slowMax > ch.slowMin {
		delay := ch.slowMin + time.Duration(rand.Int63n(int64(ch.slowMax-ch.slowMin)))
		log.WithField("delay_ms", delay.Milliseconds()).Debug("Chaos: Simulating slow response")
		time.Sleep(delay)
	}
	if ch.Enabled() && rand.Float64() < ch.failureRate {
		return ErrChaos
	}
	return nil
}

// Middleware answers 503 for simulated failures.
func (ch *Chaos) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ch.Simulate(); err != nil {
			log.WithFields(log.Fields{
				"service": ch.service,
				"path":    c.FullPath(),
			}).Warn("Chaos: Simulated failure")
			Abort(c, http.StatusServiceUnavailable, "Service temporarily unavailable: "+err.Error())
			return
		}
		c.Next()
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
