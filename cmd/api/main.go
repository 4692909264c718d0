package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/internal/api/handlers"
	"github.com/creatorpulse/backend/internal/metrics"
	"github.com/creatorpulse/backend/internal/middleware/security"
	"github.com/creatorpulse/backend/internal/middleware/validation"
	"github.com/creatorpulse/backend/internal/pipeline"
	"github.com/creatorpulse/backend/internal/runstate"
	runstateredis "github.com/creatorpulse/backend/internal/runstate/redis"
	"github.com/creatorpulse/backend/internal/scraper"
	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/internal/storage/sqlite"
	"github.com/creatorpulse/backend/internal/synthesis"
	"github.com/creatorpulse/backend/pkg/config"
	appLogger "github.com/creatorpulse/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting CreatorPulse API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var recorder runstate.Recorder = runstate.Nop{}
	var runStateClient *runstateredis.Client
	if cfg.Redis.Enabled {
		runStateClient, err = runstateredis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Pipeline.RunStateTTLMin)*time.Minute,
		)
		if err != nil {
			appLogger.Fatal("Failed to create run-state client", zap.Error(err))
		}
		defer runStateClient.Close()
		recorder = runStateClient
	}

	synthClient := synthesis.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.CorpusLimit,
		time.Duration(cfg.LLM.TimeoutSec)*time.Second,
	)

	scraperTimeout := time.Duration(cfg.Scraper.TimeoutSec) * time.Second
	adapters := map[string]scraper.Adapter{
		models.PlatformInstagram: scraper.NewInstagramAdapter(
			cfg.Scraper.InstagramBaseURL,
			cfg.Scraper.InstagramAPIKey,
			scraperTimeout,
		),
		models.PlatformTikTok: scraper.NewTikTokAdapter(
			cfg.Scraper.TikTokBaseURL,
			scraperTimeout,
		),
	}

	orchestrator := pipeline.NewOrchestrator(sqliteClient, synthClient, adapters, recorder, pipeline.Config{
		MinPosts:        cfg.Pipeline.MinPosts,
		CorpusLimit:     cfg.LLM.CorpusLimit,
		PlatformTimeout: time.Duration(cfg.Pipeline.PlatformTimeout) * time.Second,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	analyzeHandler := handlers.NewAnalyzeHandler(orchestrator, cfg.Scraper.DefaultLimit)
	profileHandler := handlers.NewProfileHandler(sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/analyze", analyzeHandler.HandleAnalyze)

	api.Get("/profile", profileHandler.GetProfile)
	api.Get("/profile/history", profileHandler.GetProfileHistory)
	api.Delete("/owners", profileHandler.PurgeOwner)

	app.Get("/metrics", metrics.MetricsHandler())

	if runStateClient != nil {
		progressHandler := handlers.NewProgressHandler(runStateClient)
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/progress/:run_id", websocket.New(progressHandler.HandleConnection))
	}

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
