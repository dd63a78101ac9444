// handlers_explorer.go - Visual explorer hand-off handlers
package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eda-explorer/backend/internal/explorer"
)

// ExplorerHandlerImpl implements the ExplorerHandler interface
type ExplorerHandlerImpl struct {
	sessionMgr SessionManager
}

// NewExplorerHandler creates a new explorer handler instance
func NewExplorerHandler(sessionMgr SessionManager) ExplorerHandler {
	return &ExplorerHandlerImpl{sessionMgr: sessionMgr}
}

// HandleExplorerArrow streams the unmodified table as Arrow IPC.
func (h *ExplorerHandlerImpl) HandleExplorerArrow(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	t, err := h.sessionMgr.Table(id)
	if err != nil {
		return FromError(err, "failed to get table")
	}

	var buf bytes.Buffer
	if err := explorer.WriteArrow(&buf, t); err != nil {
		return NewInternalError("failed to encode arrow stream", err)
	}
	return c.Blob(http.StatusOK, explorer.ArrowContentType, buf.Bytes())
}

// HandleExplorerQuery runs an aggregate query against the session's table.
func (h *ExplorerHandlerImpl) HandleExplorerQuery(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	var q explorer.Query
	if err := c.Bind(&q); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	res, err := h.sessionMgr.Aggregate(c.Request().Context(), id, q)
	if err != nil {
		return FromError(err, "explorer query failed")
	}
	return c.JSON(http.StatusOK, res)
}
