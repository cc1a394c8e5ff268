package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/approva/simulado-backend/internal/catalog"
	"github.com/approva/simulado-backend/internal/clients/generator"
	"github.com/approva/simulado-backend/internal/clients/profilestore"
	"github.com/approva/simulado-backend/internal/clients/questionbank"
	"github.com/approva/simulado-backend/internal/clients/usersvc"
	"github.com/approva/simulado-backend/internal/db"
	"github.com/approva/simulado-backend/internal/handlers"
	"github.com/approva/simulado-backend/internal/middleware"
	"github.com/approva/simulado-backend/internal/observability"
	"github.com/approva/simulado-backend/internal/platform/envutil"
	"github.com/approva/simulado-backend/internal/platform/leases"
	"github.com/approva/simulado-backend/internal/platform/logger"
	"github.com/approva/simulado-backend/internal/repos"
	"github.com/approva/simulado-backend/internal/server"
	"github.com/approva/simulado-backend/internal/services"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "simulado-backend",
		Environment: envutil.String("DEPLOY_ENV", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	})
	if shutdownTracing != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	runRepo := repos.NewPracticeRunRepo(thePG, log)
	examRepo := repos.NewOriginalExamRepo(thePG, log)
	historyRepo := repos.NewUserExamHistoryRepo(thePG, log)

	// Collaborator clients
	log.Info("Setting up collaborator clients...")
	userClient, err := usersvc.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init user service client", "error", err)
		os.Exit(1)
	}
	qbankClient, err := questionbank.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init question bank client", "error", err)
		os.Exit(1)
	}
	generatorClient, err := generator.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init generator client", "error", err)
		os.Exit(1)
	}
	profileClient, err := profilestore.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init profile store client", "error", err)
		os.Exit(1)
	}
	leaseManager, err := leases.NewRedisManagerFromEnv(log)
	if err != nil {
		log.Error("Could not init lease manager", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services...")
	catalogLoader, err := catalog.NewTemplateLoader()
	if err != nil {
		log.Error("Could not load catalog template", "error", err)
		os.Exit(1)
	}
	examService := services.NewOriginalExamService(examRepo, historyRepo, log)
	assemblyService := services.NewAssemblyService(generatorClient, qbankClient, examService, log)
	lifecycleService := services.NewLifecycleService(
		runRepo,
		userClient,
		qbankClient,
		profileClient,
		assemblyService,
		examService,
		catalogLoader,
		leaseManager,
		services.DefaultScoreParams(),
		log,
	)

	// Handlers and middleware
	log.Info("Setting up handlers...")
	simuladoHandler := handlers.NewSimuladoHandler(lifecycleService)
	examHandler := handlers.NewOriginalExamHandler(examService)
	authMiddleware := middleware.NewAuthMiddleware(log)

	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:      authMiddleware,
		SimuladoHandler:     simuladoHandler,
		OriginalExamHandler: examHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
