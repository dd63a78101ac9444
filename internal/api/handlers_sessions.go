// handlers_sessions.go - Session lifecycle and table loading handlers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eda-explorer/backend/internal/loader"
	"github.com/eda-explorer/backend/internal/logging"
	"github.com/eda-explorer/backend/internal/models"
	"github.com/eda-explorer/backend/internal/storage"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	store       storage.Store
	sessionMgr  SessionManager
	loadTimeout time.Duration
}

// NewSessionHandler creates a new session handler instance. loadTimeout <= 0
// leaves loads bounded only by the request context.
func NewSessionHandler(store storage.Store, sessionMgr SessionManager, loadTimeout time.Duration) SessionHandler {
	return &SessionHandlerImpl{
		store:       store,
		sessionMgr:  sessionMgr,
		loadTimeout: loadTimeout,
	}
}

// HandleCreateSession opens an empty session.
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess, err := h.sessionMgr.CreateSession()
	if err != nil {
		return FromError(err, "failed to create session")
	}
	return c.JSON(http.StatusCreated, sess)
}

// HandleGetSession returns the session status.
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteSession ends a session and frees its table.
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	if !h.sessionMgr.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive marks the session as in use.
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	if !h.sessionMgr.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"sessionId": id,
	})
}

// HandleLoadTable parses a stored file into the session's table. A failed
// load leaves the previous table in place.
func (h *SessionHandlerImpl) HandleLoadTable(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	var req loadTableRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if _, ok := h.sessionMgr.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	info, err := h.store.Get(req.FileID)
	if err != nil {
		return FromError(err, "failed to get file")
	}
	hints, err := req.hints(info.Kind)
	if err != nil {
		return err
	}

	data, err := h.store.ReadFile(req.FileID)
	if err != nil {
		return FromError(err, "failed to read file")
	}

	ctx := c.Request().Context()
	if h.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.loadTimeout)
		defer cancel()
	}

	sess, err := h.sessionMgr.LoadTable(ctx, id, info.ID, info.Name, data, hints)
	if err != nil {
		if errors.Is(err, loader.ErrUnreadableFile) {
			h.setFileStatus(ctx, info.ID, storage.StatusError)
		}
		return FromError(err, "failed to load table")
	}
	h.setFileStatus(ctx, info.ID, storage.StatusLoaded)
	return c.JSON(http.StatusOK, sess)
}

func (h *SessionHandlerImpl) setFileStatus(ctx context.Context, id, status string) {
	if err := h.store.SetStatus(id, status); err != nil {
		logging.FromContext(ctx).Warn("[API] failed to update file status", "file", id, "status", status, "error", err)
	}
}

type loadTableRequest struct {
	FileID    string `json:"fileId"`
	Kind      string `json:"kind"`
	Sheet     string `json:"sheet"`
	HeaderRow *int   `json:"headerRow"`
}

func (r *loadTableRequest) validate() error {
	if r.FileID == "" {
		return NewValidationError("fileId")
	}
	if r.HeaderRow != nil && (*r.HeaderRow < 0 || *r.HeaderRow > models.MaxHeaderRow) {
		return NewValidationError("headerRow")
	}
	return nil
}

// hints resolves the request against the stored file kind.
func (r *loadTableRequest) hints(stored models.FileKind) (models.LoadHints, error) {
	kind := stored
	if r.Kind != "" {
		k, err := models.ParseFileKind(r.Kind)
		if err != nil {
			return models.LoadHints{}, NewValidationError("kind")
		}
		kind = k
	}
	h := models.LoadHints{Kind: kind, SheetName: r.Sheet}
	if r.HeaderRow != nil {
		h.HeaderRow = *r.HeaderRow
	}
	return h.Normalize(), nil
}
