package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyChecker probes one backing dependency
type DependencyChecker func(ctx context.Context) error

// HealthChecker aggregates dependency probes behind HTTP endpoints.
// Liveness always succeeds while the process runs; readiness requires
// every registered dependency to respond.
type HealthChecker struct {
	checks  map[string]DependencyChecker
	timeout time.Duration
	started time.Time
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]DependencyChecker),
		timeout: 5 * time.Second,
		started: time.Now(),
	}
}

// Register adds a named dependency probe
func (h *HealthChecker) Register(name string, check DependencyChecker) {
	h.checks[name] = check
}

// LivenessHandler reports process liveness
func (h *HealthChecker) LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "alive",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// ReadinessHandler probes every dependency and fails if any is down
func (h *HealthChecker) ReadinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
		} else {
			results[name] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": results,
	})
}

// HealthHandler is the combined endpoint used by load balancers
func (h *HealthChecker) HealthHandler(c *gin.Context) {
	h.ReadinessHandler(c)
}
