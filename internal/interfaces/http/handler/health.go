package handler

import (
	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness
type HealthHandler struct {
	BaseHandler
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// HealthResponse is the liveness body
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health serves GET /health: liveness check.
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{Status: "ok", Version: h.version})
}
