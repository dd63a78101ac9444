// handlers_files.go - Uploaded file handlers
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eda-explorer/backend/internal/models"
	"github.com/eda-explorer/backend/internal/storage"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store  storage.Store
	sheets FormatRegistry
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store, sheets FormatRegistry) FileHandler {
	return &FileHandlerImpl{store: store, sheets: sheets}
}

// HandleUploadFile accepts a multipart upload in the "file" field. An
// optional "name" field overrides the client file name.
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = file.Filename
	}
	if name == "" {
		return NewValidationError("name")
	}

	src, err := file.Open()
	if err != nil {
		return NewBadRequestError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(name, src)
	if err != nil {
		return FromError(err, "failed to save file")
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns the most recent uploads, newest first.
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewValidationError("limit")
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file.
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	info, err := h.store.Get(id)
	if err != nil {
		return FromError(err, "failed to get file")
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetSheets lists the sheet names of a workbook. Delimited files have
// no sheets and return an empty list.
func (h *FileHandlerImpl) HandleGetSheets(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	info, err := h.store.Get(id)
	if err != nil {
		return FromError(err, "failed to get file")
	}

	sheets := []string{}
	if info.Kind == models.FileKindExcel {
		data, err := h.store.ReadFile(id)
		if err != nil {
			return FromError(err, "failed to read file")
		}
		names, err := h.sheets.Sheets(data, info.Kind)
		if err != nil {
			return FromError(err, "failed to list sheets")
		}
		sheets = names
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"fileId": id,
		"kind":   info.Kind,
		"sheets": sheets,
	})
}

// HandleRenameFile updates the display name of a file.
func (h *FileHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return FromError(err, "failed to rename file")
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile removes a file from storage.
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if err := h.store.Delete(id); err != nil {
		return FromError(err, "failed to delete file")
	}
	return c.NoContent(http.StatusNoContent)
}

type renameFileRequest struct {
	Name string `json:"name"`
}

func (r *renameFileRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name")
	}
	return nil
}
