package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports reachability of a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// DepthReporter exposes the ingestion queue backlog
type DepthReporter interface {
	Depth(ctx context.Context) (int64, error)
}

// healthz handles GET /healthz: reports database and queue
// reachability plus the current queue depth.
func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if err := s.dbHealth.Ping(ctx); err != nil {
		checks["database"] = "unreachable: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if err := s.queueHealth.Ping(ctx); err != nil {
		checks["queue"] = "unreachable: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["queue"] = "ok"
		if depth, err := s.queueDepth.Depth(ctx); err == nil {
			checks["queue_depth"] = depth
		}
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "healthy", false: "degraded"}[status == http.StatusOK],
		"checks": checks,
	})
}
