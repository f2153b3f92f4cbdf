package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/cbe-service/internal/config"
	"github.com/prepdeck/cbe-service/internal/handlers"
	"github.com/prepdeck/cbe-service/internal/repositories"
	"github.com/prepdeck/cbe-service/internal/repositories/postgres"
	"github.com/prepdeck/cbe-service/internal/services"
	"github.com/prepdeck/cbe-service/internal/store"
	"github.com/prepdeck/cbe-service/internal/utils"
	"github.com/prepdeck/cbe-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlog(logger)

	persistent, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("failed to initialise store: %v", err)
	}
	// Results live for the lifetime of the process, like the original
	// per-window result cache.
	sessionStore := store.NewMemory()

	papers, err := buildPaperRepository(cfg)
	if err != nil {
		log.Fatalf("failed to initialise paper repository: %v", err)
	}

	bus, err := config.LoadEventConfig().CreateBus(slogger)
	if err != nil {
		log.Fatalf("failed to initialise event bus: %v", err)
	}
	defer bus.Close()

	validator := utils.NewValidator()

	sessions := services.NewSessionManager(papers, persistent, sessionStore, bus, validator, slogger)
	summaries := services.NewSummaryService(papers, persistent, sessionStore, slogger)
	exports := services.NewExportService(summaries, slogger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger), gin.Recovery())

	hm := handlers.NewHandlerManager(papers, sessions, summaries, exports, validator, logger)
	hm.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}

func buildStore(cfg *config.Config) (store.KV, error) {
	switch cfg.StoreBackend {
	case store.BackendMemory:
		return store.NewMemory(), nil
	case store.BackendRedis:
		client, err := pkg.NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return store.NewRedis(client), nil
	case store.BackendSQLite:
		return store.NewSQLite(cfg.SQLitePath)
	default:
		return nil, &store.ErrUnknownBackend{Backend: cfg.StoreBackend}
	}
}

func buildPaperRepository(cfg *config.Config) (repositories.PaperRepository, error) {
	switch cfg.PaperBackend {
	case "memory":
		return repositories.NewSeededBank(), nil
	case "postgres":
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewPaperPostgreSQL(db)
		if migrator, ok := repo.(interface{ Migrate() error }); ok {
			if err := migrator.Migrate(); err != nil {
				return nil, err
			}
		}
		return repo, nil
	case "http":
		return repositories.NewHTTPClient(cfg.PaperBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown paper backend %q", cfg.PaperBackend)
	}
}
