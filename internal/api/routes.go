// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eda-explorer/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store       storage.Store
	SessionMgr  SessionManager
	Formats     FormatRegistry
	LoadTimeout time.Duration
	Version     string
	// AllowFileDeletion gates DELETE /api/files/:id.
	AllowFileDeletion bool
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Files    FileHandler
	Sessions SessionHandler
	Views    ViewHandler
	Explorer ExplorerHandler

	allowFileDeletion bool
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:            NewHealthHandler(deps.Version, deps.SessionMgr, deps.Formats),
		Files:             NewFileHandler(deps.Store, deps.Formats),
		Sessions:          NewSessionHandler(deps.Store, deps.SessionMgr, deps.LoadTimeout),
		Views:             NewViewHandler(deps.SessionMgr),
		Explorer:          NewExplorerHandler(deps.SessionMgr),
		allowFileDeletion: deps.AllowFileDeletion,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// File management
	files := apiGroup.Group("/files")
	files.POST("/upload", handlers.Files.HandleUploadFile)
	files.GET("/recent", handlers.Files.HandleGetRecentFiles)
	files.GET("/:id", handlers.Files.HandleGetFile)
	files.GET("/:id/sheets", handlers.Files.HandleGetSheets)
	files.PUT("/:id", handlers.Files.HandleRenameFile)
	if handlers.allowFileDeletion {
		files.DELETE("/:id", handlers.Files.HandleDeleteFile)
	}

	// Session lifecycle
	sessions := apiGroup.Group("/sessions")
	sessions.POST("", handlers.Sessions.HandleCreateSession)
	sessions.GET("/:sessionId", handlers.Sessions.HandleGetSession)
	sessions.DELETE("/:sessionId", handlers.Sessions.HandleDeleteSession)
	sessions.POST("/:sessionId/keepalive", handlers.Sessions.HandleSessionKeepAlive)
	sessions.POST("/:sessionId/load", handlers.Sessions.HandleLoadTable)

	// Descriptive views
	sessions.GET("/:sessionId/preview", handlers.Views.HandlePreview)
	sessions.GET("/:sessionId/preview/msgpack", handlers.Views.HandlePreviewMsgpack)
	sessions.GET("/:sessionId/views/:view", handlers.Views.HandleGetView)
	sessions.GET("/:sessionId/fields/text", handlers.Views.HandleGetTextFields)

	// Visual explorer
	sessions.GET("/:sessionId/explorer/arrow", handlers.Explorer.HandleExplorerArrow)
	sessions.POST("/:sessionId/explorer/query", handlers.Explorer.HandleExplorerQuery)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
