package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck probes one backing service.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	appName   string
	env       string
	startedAt time.Time
	checks    []DependencyCheck
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(appName, env string, startedAt time.Time, checks []DependencyCheck) *HealthHandler {
	return &HealthHandler{appName: appName, env: env, startedAt: startedAt, checks: checks}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	allOK := true
	deps := gin.H{}
	for _, dep := range h.checks {
		status := dependencyStatus{OK: true}
		if err := dep.Check(ctx); err != nil {
			status = dependencyStatus{OK: false, Message: err.Error()}
			allOK = false
		}
		deps[dep.Name] = status
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":          h.appName,
		"env":          h.env,
		"uptime_sec":   int(time.Since(h.startedAt).Seconds()),
		"dependencies": deps,
	})
}
