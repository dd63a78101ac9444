package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/eda-explorer/backend/internal/api"
	"github.com/eda-explorer/backend/internal/cache"
	"github.com/eda-explorer/backend/internal/config"
	"github.com/eda-explorer/backend/internal/loader"
	"github.com/eda-explorer/backend/internal/logging"
	"github.com/eda-explorer/backend/internal/session"
	"github.com/eda-explorer/backend/internal/storage"
	"github.com/eda-explorer/backend/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the embedded UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath(), "path to the YAML config file (created when missing)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.AppConfig, configPath string) error {
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	api.ShowErrorDetails = cfg.Server.ShowErrorDetails

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	fileStore, err := storage.NewLocalStore(cfg.Storage.UploadsDirectory, cfg.Storage.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	tables, err := cache.NewLRU(cfg.Cache.Size)
	if err != nil {
		return fmt.Errorf("failed to initialize table cache: %w", err)
	}
	registry := loader.NewRegistry()
	sessionMgr := session.NewManager(registry, tables, cfg.SessionConfig())
	defer sessionMgr.Close()

	sessionMgr.StartCleanup(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())
	if retention := cfg.Retention(); retention > 0 {
		go purgeUploads(ctx, fileStore, cfg.CleanupInterval(), retention)
	}

	e := newEcho(cfg)
	handlers := api.NewHandlers(&api.Dependencies{
		Store:             fileStore,
		SessionMgr:        sessionMgr,
		Formats:           registry,
		LoadTimeout:       cfg.LoadTimeout(),
		Version:           Version,
		AllowFileDeletion: cfg.Server.AllowFileDeletion,
	})
	api.RegisterRoutes(e, handlers)

	embedded := web.HasEmbeddedFiles()
	if embedded {
		if err := web.RegisterStaticRoutes(e); err != nil {
			slog.Warn("failed to register static routes", "error", err)
			embedded = false
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	slog.Info("EDA explorer starting",
		"version", Version,
		"buildTime", BuildTime,
		"config", configPath,
		"listen", cfg.GetServerAddr(),
		"uploads", cfg.Storage.UploadsDirectory,
		"embeddedUI", embedded,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- e.StartServer(s) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newEcho configures the middleware stack.
func newEcho(cfg *config.AppConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e)

	e.Use(logging.RequestID())
	if cfg.Server.EnableRequestLogging {
		e.Use(logging.RequestLogger(func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") || path == "/api/health"
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.Error("[HTTP] panic recovered", "error", err, "stack", string(stack))
			return err
		},
	}))

	if cfg.Server.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Server.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/arrow") ||
					strings.HasSuffix(c.Request().URL.Path, "/msgpack")
			},
		}))
	}

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := cfg.Server.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	return e
}

// purgeUploads removes uploads older than maxAge on every tick.
func purgeUploads(ctx context.Context, store *storage.LocalStore, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.PurgeOlderThan(maxAge); n > 0 {
				slog.Info("[Storage] purged old uploads", "count", n)
			}
		}
	}
}
