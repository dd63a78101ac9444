package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eda-explorer/backend/internal/loader"
	"github.com/eda-explorer/backend/internal/testutil"
)

func TestFileHandler_HandleUploadFile(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		extra      map[string]string
		wantStatus int
		wantKind   string
		wantName   string
	}{
		{name: "csv", fileName: "data.csv", wantStatus: http.StatusCreated, wantKind: "csv", wantName: "data.csv"},
		{name: "workbook", fileName: "book.xlsx", wantStatus: http.StatusCreated, wantKind: "excel", wantName: "book.xlsx"},
		{name: "name override", fileName: "blob", extra: map[string]string{"name": "renamed.xlsx"}, wantStatus: http.StatusCreated, wantKind: "excel", wantName: "renamed.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			body, ct := multipartBody(t, "file", tt.fileName, []byte("a,b\n1,2\n"), tt.extra)
			rec := env.do(http.MethodPost, "/api/files/upload", body, ct)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			out := decodeBody(t, rec)
			assert.Equal(t, tt.wantKind, out["kind"])
			assert.Equal(t, tt.wantName, out["name"])
			assert.Equal(t, 1, env.store.GetFileCount())
		})
	}
}

func TestFileHandler_HandleUploadFile_NoFile(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/files/upload", bytes.NewReader(nil), echo.MIMEApplicationForm)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, decodeBody(t, rec)["code"])
}

func TestFileHandler_HandleGetRecentFiles(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"f1", "f2", "f3"} {
		env.store.AddFile(id, id+".csv", []byte("a\n1\n"))
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{name: "default limit", query: "", wantStatus: http.StatusOK, wantCount: 3},
		{name: "limit", query: "?limit=2", wantStatus: http.StatusOK, wantCount: 2},
		{name: "bad limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "zero limit", query: "?limit=0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/files/recent"+tt.query, nil, "")
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var files []map[string]any
			require.NoError(t, jsonUnmarshal(rec, &files))
			assert.Len(t, files, tt.wantCount)
		})
	}
}

func TestFileHandler_HandleGetFile(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddFile("f1", "a.csv", []byte("a\n1\n"))

	rec := env.do(http.MethodGet, "/api/files/f1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a.csv", decodeBody(t, rec)["name"])

	rec = env.do(http.MethodGet, "/api/files/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeBody(t, rec)["code"])
}

func TestFileHandler_HandleGetSheets(t *testing.T) {
	env := newTestEnv(t)
	book := testutil.Workbook(t, []string{"Data", "Notes"}, map[string][][]any{
		"Data": {{"a"}, {1}},
	})
	env.store.AddFile("book", "book.xlsx", book)
	env.store.AddFile("flat", "flat.csv", []byte("a\n1\n"))
	env.store.AddFile("broken", "broken.xlsx", []byte("not a zip"))

	t.Run("workbook", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/files/book/sheets", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{"Data", "Notes"}, decodeBody(t, rec)["sheets"])
	})

	t.Run("csv has no sheets", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/files/flat/sheets", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, decodeBody(t, rec)["sheets"])
	})

	t.Run("unreadable workbook", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/files/broken/sheets", nil, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, CodeUnreadableFile, decodeBody(t, rec)["code"])
	})

	t.Run("storage read failure", func(t *testing.T) {
		env.store.ReadErr = errors.New("disk gone")
		defer func() { env.store.ReadErr = nil }()
		rec := env.do(http.MethodGet, "/api/files/book/sheets", nil, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestFileHandler_HandleRenameFile(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddFile("f1", "a.csv", []byte("a\n1\n"))

	tests := []struct {
		name       string
		id         string
		payload    map[string]any
		wantStatus int
	}{
		{name: "rename", id: "f1", payload: map[string]any{"name": "b.csv"}, wantStatus: http.StatusOK},
		{name: "blank name", id: "f1", payload: map[string]any{"name": "  "}, wantStatus: http.StatusBadRequest},
		{name: "unknown file", id: "nope", payload: map[string]any{"name": "b.csv"}, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(http.MethodPut, "/api/files/"+tt.id, tt.payload)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	info, err := env.store.Get("f1")
	require.NoError(t, err)
	assert.Equal(t, "b.csv", info.Name)
}

func TestFileHandler_HandleDeleteFile(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("f1", "a.csv", []byte("a\n1\n"))
	h := NewFileHandler(store, loader.NewRegistry())
	e := echo.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/files/f1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("f1")

	if assert.NoError(t, h.HandleDeleteFile(c)) {
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, 0, store.GetFileCount())

	// Deleting again is a not-found error.
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("f1")
	err := h.HandleDeleteFile(c)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestRenameFileRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     renameFileRequest
		wantErr bool
	}{
		{name: "valid", req: renameFileRequest{Name: "x.csv"}},
		{name: "empty", req: renameFileRequest{}, wantErr: true},
		{name: "whitespace", req: renameFileRequest{Name: "\t "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
