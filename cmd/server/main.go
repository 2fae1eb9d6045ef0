package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/api"
	"github.com/trendlog-viewer/backend/internal/config"
	"github.com/trendlog-viewer/backend/internal/export"
	"github.com/trendlog-viewer/backend/internal/parser"
	"github.com/trendlog-viewer/backend/internal/session"
	"github.com/trendlog-viewer/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configFlag := flag.String("config", "", "path to the XML configuration (default: next to the executable)")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		// Get the executable's directory for config resolution
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(filepath.Dir(exePath), "TrendLogViewer.config")
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	decoderOpts, err := cfg.DecoderOptions()
	if err != nil {
		fmt.Printf("Invalid decoder configuration: %v\n", err)
		os.Exit(1)
	}
	decoder := parser.NewDecoder(decoderOpts...)

	// Initialize storage
	fileStore, err := storage.NewLocalStore(cfg.Storage.CapturesDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize session manager and start background cleanup
	sessionMgr := session.NewManager(fileStore, decoder)
	sessionMgr.StartCleanup(ctx, 5*time.Minute)

	deps := &api.Dependencies{
		Sessions:      sessionMgr,
		Exporters:     export.NewRegistry(),
		DefaultFormat: cfg.Export.DefaultFormat,
		Version:       Version,
	}
	if cfg.Export.MeboMetricName != "" {
		deps.Exporters.Register(export.MeboExporter{MetricName: cfg.Export.MeboMetricName})
	}
	if _, err := deps.Exporters.Get(deps.DefaultFormat); err != nil {
		fmt.Printf("Invalid export configuration: %v\n", err)
		os.Exit(1)
	}

	// Persisted series are optional
	var duckStore *parser.DuckStore
	if cfg.Storage.EnablePersistence {
		duckStore, err = parser.NewDuckStore(cfg.Storage.DatabaseDirectory, cfg.DuckOptions())
		if err != nil {
			fmt.Printf("Warning: persistence disabled, failed to open DuckDB store: %v\n", err)
		} else {
			deps.Runs = duckStore
			defer duckStore.Close()
		}
	}

	api.ShowErrorDetails = cfg.Advanced.LogLevel == "debug" || Version == "dev"

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableRequestLogging: cfg.Advanced.EnableRequestLogging,
		EnableCORS:           cfg.Server.EnableCORS,
		AllowOrigins:         cfg.Server.AllowOrigins,
		BodyLimit:            cfg.Server.BodyLimit,
		RequestTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
	})
	api.RegisterRoutes(e, api.NewHandlers(deps))

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	persistence := "disabled"
	if deps.Runs != nil {
		persistence = duckStore.Path()
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Trend Log Viewer Server                         ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Decoder:    %-45s║\n", decoderSummary(decoder))
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Captures:  %-46s║\n", cfg.Storage.CapturesDirectory)
	fmt.Printf("║  Database:  %-46s║\n", persistence)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Server error: %v\n", err)
			stop()
		}
	}()

	<-ctx.Done()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}
}

func decoderSummary(d *parser.Decoder) string {
	cfg := d.Config()
	return fmt.Sprintf("%s, %s, %s", cfg.Resolution, cfg.Order, cfg.Location)
}
