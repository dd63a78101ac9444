// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/eda-explorer/backend/internal/explorer"
	"github.com/eda-explorer/backend/internal/models"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// FileHandler handles uploaded file operations
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleGetSheets(c echo.Context) error
	HandleRenameFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// SessionHandler handles session lifecycle and table loading
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleLoadTable(c echo.Context) error
}

// ViewHandler handles the descriptive views of a loaded table
type ViewHandler interface {
	HandlePreview(c echo.Context) error
	HandlePreviewMsgpack(c echo.Context) error
	HandleGetView(c echo.Context) error
	HandleGetTextFields(c echo.Context) error
}

// ExplorerHandler handles the visual explorer hand-off
type ExplorerHandler interface {
	HandleExplorerArrow(c echo.Context) error
	HandleExplorerQuery(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	CreateSession() (*models.Session, error)
	GetSession(id string) (*models.Session, bool)
	TouchSession(id string) bool
	DeleteSession(id string) bool
	LoadTable(ctx context.Context, id, fileID, fileName string, data []byte, hints models.LoadHints) (*models.Session, error)
	Table(id string) (*models.Table, error)
	Describe(id string, sel models.ViewSelection) (*models.ViewResult, error)
	Preview(id string, page, pageSize int) (*models.PreviewPage, error)
	TextFields(id string) ([]string, error)
	Count() int
	Aggregate(ctx context.Context, id string, q explorer.Query) (*explorer.Result, error)
}

// FormatRegistry knows the supported file kinds and enumerates the sheets
// of a stored workbook.
type FormatRegistry interface {
	Kinds() []models.FileKind
	Sheets(data []byte, kind models.FileKind) ([]string, error)
}
