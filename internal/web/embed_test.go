package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStaticRoutes(t *testing.T) {
	require.True(t, HasEmbeddedFiles())

	e := echo.New()
	e.GET("/api/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	require.NoError(t, RegisterStaticRoutes(e))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "root", path: "/", wantStatus: http.StatusOK, wantBody: "EDA Explorer"},
		{name: "index", path: "/index.html", wantStatus: http.StatusOK, wantBody: "EDA Explorer"},
		{name: "client route falls back", path: "/sessions/abc", wantStatus: http.StatusOK, wantBody: "EDA Explorer"},
		{name: "api route wins", path: "/api/health", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "unknown api path", path: "/api/nope", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestIndexUsesSessionEndpoints(t *testing.T) {
	e := echo.New()
	require.NoError(t, RegisterStaticRoutes(e))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name     string
		endpoint string
	}{
		{"upload", "/api/files/upload"},
		{"sheets", "/sheets"},
		{"load", "/load"},
		{"views", "/views/"},
		{"text fields", "/fields/text"},
		{"preview", "/preview?page="},
		{"explorer query", "/explorer/query"},
		{"explorer arrow", "/explorer/arrow"},
		{"keepalive", "/keepalive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, rec.Body.String(), tt.endpoint)
		})
	}
}
