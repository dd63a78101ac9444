// handlers_views.go - Descriptive view handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/eda-explorer/backend/internal/describe"
	"github.com/eda-explorer/backend/internal/models"
)

// ViewHandlerImpl implements the ViewHandler interface
type ViewHandlerImpl struct {
	sessionMgr SessionManager
}

// NewViewHandler creates a new view handler instance
func NewViewHandler(sessionMgr SessionManager) ViewHandler {
	return &ViewHandlerImpl{sessionMgr: sessionMgr}
}

// HandlePreview returns a page of table rows.
func (h *ViewHandlerImpl) HandlePreview(c echo.Context) error {
	page, err := h.preview(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page.Payload())
}

// HandlePreviewMsgpack returns a page of table rows in MessagePack format.
func (h *ViewHandlerImpl) HandlePreviewMsgpack(c echo.Context) error {
	page, err := h.preview(c)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(page.Payload())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *ViewHandlerImpl) preview(c echo.Context) (*models.PreviewPage, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}

	page, err := intParam(c, "page", 1)
	if err != nil {
		return nil, err
	}
	pageSize, err := intParam(c, "pageSize", describe.DefaultPageSize)
	if err != nil {
		return nil, err
	}

	p, err := h.sessionMgr.Preview(id, page, pageSize)
	if err != nil {
		return nil, FromError(err, "failed to build preview")
	}
	return p, nil
}

// HandleGetView returns one of the descriptive views. value-counts takes
// the text field in ?field=.
func (h *ViewHandlerImpl) HandleGetView(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	kind, err := models.ParseViewKind(c.Param("view"))
	if err != nil {
		return NewNotFoundError("view", c.Param("view"))
	}
	sel := models.ViewSelection{Kind: kind, Field: c.QueryParam("field")}
	if kind == models.ViewValueCounts && sel.Field == "" {
		return NewValidationError("field")
	}

	res, err := h.sessionMgr.Describe(id, sel)
	if err != nil {
		return FromError(err, "failed to compute view")
	}
	return c.JSON(http.StatusOK, res.Payload())
}

// HandleGetTextFields lists the fields value counts accept.
func (h *ViewHandlerImpl) HandleGetTextFields(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	fields, err := h.sessionMgr.TextFields(id)
	if err != nil {
		return FromError(err, "failed to list fields")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fields": fields,
	})
}

// intParam reads a positive integer query parameter.
func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, NewValidationError(name)
	}
	return n, nil
}
