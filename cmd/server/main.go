package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safeinsights/management-app-sub003/internal/api"
	"github.com/safeinsights/management-app-sub003/internal/app/service"
	"github.com/safeinsights/management-app-sub003/internal/common/security"
	"github.com/safeinsights/management-app-sub003/internal/domain/repository"
	"github.com/safeinsights/management-app-sub003/internal/platform/cache"
	"github.com/safeinsights/management-app-sub003/internal/platform/config"
	"github.com/safeinsights/management-app-sub003/internal/platform/database"
	"github.com/safeinsights/management-app-sub003/internal/platform/storage"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	tokenAuth := security.NewTokenAuth(cfg.JWTKey)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	logger.Info("database connected")

	rdb, err := cache.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	logger.Info("redis connected")

	var store storage.ObjectStore
	if cfg.StorageMode == "s3" {
		store, err = storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			log.Fatalf("s3 storage: %v", err)
		}
	} else {
		store = storage.NewLocalStore(cfg.UploadTmpDir)
	}

	// Repositories
	jobRepo := repository.NewPgStudyJobRepository(db)
	fileRepo := repository.NewPgJobFileRepository(db)
	studyRepo := repository.NewPgStudyRepository(db)
	orgRepo := repository.NewPgOrgRepository(db)
	keyRepo := repository.NewPgUserKeyRepository(db)

	// Services
	keyService := service.NewKeyService(keyRepo, orgRepo, rdb, cfg.RecipientCacheTTL, logger)
	jobStatusService := service.NewJobStatusService(jobRepo, fileRepo, keyService, store, logger)
	studyService := service.NewStudyService(studyRepo, orgRepo, jobRepo, fileRepo, store, logger)
	orgService := service.NewOrgService(orgRepo)

	router := api.NewRouter(cfg, tokenAuth, jobStatusService, studyService, keyService, orgService, logger)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v", cfg.APIPort, err)
		}
	}()

	<-stop

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	logger.Info("server stopped gracefully")
}
