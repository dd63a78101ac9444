// Package web serves the bundled browser UI from the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// FileSystem returns the embedded filesystem with the dist folder as root.
func FileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// HasEmbeddedFiles reports whether dist carries an index.html.
func HasEmbeddedFiles() bool {
	_, err := fs.Stat(staticFiles, "dist/index.html")
	return err == nil
}

// RegisterStaticRoutes serves the UI for every path outside /api. Unknown
// paths fall back to index.html so client-side routes resolve.
// The API routes should be registered before calling this function.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := FileSystem()
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean(c.Request().URL.Path)
		if strings.HasPrefix(requestPath, "/api/") {
			return echo.ErrNotFound
		}

		name := strings.TrimPrefix(requestPath, "/")
		if name == "" || name == "index.html" {
			return serveIndexHTML(c, staticFS)
		}
		stat, err := fs.Stat(staticFS, name)
		if err != nil || stat.IsDir() {
			return serveIndexHTML(c, staticFS)
		}
		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
	return nil
}

func serveIndexHTML(c echo.Context, staticFS fs.FS) error {
	content, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "index.html not found")
	}
	return c.HTMLBlob(http.StatusOK, content)
}
