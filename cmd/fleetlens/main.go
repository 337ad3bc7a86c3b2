package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/dbeaufort/fleetlens/internal/annotate"
	"github.com/dbeaufort/fleetlens/internal/config"
	"github.com/dbeaufort/fleetlens/internal/db"
	"github.com/dbeaufort/fleetlens/internal/imagestore/local"
	"github.com/dbeaufort/fleetlens/internal/inspect"
	"github.com/dbeaufort/fleetlens/internal/logging"
	"github.com/dbeaufort/fleetlens/internal/staging"
	"github.com/dbeaufort/fleetlens/internal/store"
	"github.com/dbeaufort/fleetlens/internal/vision"
	claudevision "github.com/dbeaufort/fleetlens/internal/vision/claude"
	geminivision "github.com/dbeaufort/fleetlens/internal/vision/gemini"
	"github.com/dbeaufort/fleetlens/internal/web"
)

// staleSweepInterval bounds how long an orphaned transient file can survive a
// crashed request.
const staleSweepInterval = time.Hour

func main() {
	// Missing .env is fine: real deployments configure via the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	carStore := store.NewCarStore(database)
	bookingStore := store.NewBookingStore(database)
	bookingImageStore := store.NewBookingImageStore(database)
	inspectionStore := store.NewInspectionStore(database)

	analyzer := newVisionAnalyzer(cfg, logger)
	if analyzer == nil {
		return
	}

	area, err := staging.New(cfg.TempDir)
	if err != nil {
		logger.Error("failed to initialize staging area", "error", err)
		return
	}
	// Leftovers from a previous crash are unreferenced by definition.
	area.SweepAll(logger)
	go func() {
		for range time.Tick(staleSweepInterval) {
			area.SweepAll(logger)
		}
	}()

	images, err := local.NewLocalStore(cfg.StorageRoot)
	if err != nil {
		logger.Error("failed to initialize image storage", "error", err)
		return
	}

	inspector := inspect.NewService(inspect.Deps{
		Area:          area,
		Images:        images,
		Analyzer:      analyzer,
		Renderer:      annotate.NewRenderer(images, logger),
		Inspections:   inspectionStore,
		Bookings:      bookingStore,
		BookingImages: bookingImageStore,
		Logger:        logger,
	})

	server := web.NewServer(web.Deps{
		Inspector:     inspector,
		Cars:          carStore,
		Bookings:      bookingStore,
		BookingImages: bookingImageStore,
		Inspections:   inspectionStore,
		Images:        images,
		Area:          area,
		VisionBackend: cfg.VisionBackend,
		Logger:        logger,
	})

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newVisionAnalyzer(cfg *config.Config, logger *slog.Logger) vision.Analyzer {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	default:
		if cfg.GeminiAPIKey == "" {
			logger.Error("GEMINI_API_KEY is required when VISION_BACKEND=gemini")
			return nil
		}
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		return geminivision.NewGeminiAnalyzer(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}
