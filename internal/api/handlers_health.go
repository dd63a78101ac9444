// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	started  time.Time
	sessions SessionManager
	formats  FormatRegistry
}

// NewHealthHandler creates a new health handler. sessions and formats may
// be nil.
func NewHealthHandler(version string, sessions SessionManager, formats FormatRegistry) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		started:  time.Now(),
		sessions: sessions,
		formats:  formats,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.sessions != nil {
		resp["sessions"] = h.sessions.Count()
	}
	if h.formats != nil {
		resp["formats"] = h.formats.Kinds()
	}
	return c.JSON(http.StatusOK, resp)
}
