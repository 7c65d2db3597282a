package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = time.Second

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

type HealthHandler struct {
	serviceName string
	version     string
	probes      map[string]Probe
}

// NewHealthHandler builds the handler. A nil probe reports "disabled".
func NewHealthHandler(serviceName, version string, probes map[string]Probe) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		probes:      probes,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	var g errgroup.Group
	for i, name := range names {
		probe := h.probes[name]
		if probe == nil {
			results[i] = "disabled"
			continue
		}
		g.Go(func() error {
			if err := probe(ctx); err != nil {
				results[i] = "down"
			} else {
				results[i] = "up"
			}
			return nil
		})
	}
	_ = g.Wait()

	status := "healthy"
	checks := make(map[string]string, len(names))
	for i, name := range names {
		checks[name] = results[i]
		if results[i] == "down" {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Checks:    checks,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
