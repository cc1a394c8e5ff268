package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/approva/simulado-backend/internal/handlers"
	"github.com/approva/simulado-backend/internal/middleware"
	"github.com/approva/simulado-backend/internal/platform/envutil"
)

type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	SimuladoHandler     *handlers.SimuladoHandler
	OriginalExamHandler *handlers.OriginalExamHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("simulado-backend"))

	origins := strings.Split(envutil.String("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5174"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	simulados := api.Group("/simulados")
	{
		simulados.POST("/adaptive", cfg.SimuladoHandler.StartAdaptive)
		simulados.POST("/original", cfg.SimuladoHandler.StartOriginal)
		simulados.POST("/custom", cfg.SimuladoHandler.StartCustom)
		simulados.GET("", cfg.SimuladoHandler.ListRuns)
		simulados.GET("/latest", cfg.SimuladoHandler.LatestRun)
		simulados.GET("/stats", cfg.SimuladoHandler.Stats)
		simulados.GET("/:id", cfg.SimuladoHandler.GetRun)
		simulados.GET("/:id/items", cfg.SimuladoHandler.ListItems)
		simulados.POST("/:id/finalize", cfg.SimuladoHandler.Finalize)
		simulados.POST("/:id/module2", cfg.SimuladoHandler.LoadModule2)
		simulados.DELETE("/:id", cfg.SimuladoHandler.DeleteRun)
	}

	exams := api.Group("/exams")
	{
		exams.GET("/available", cfg.OriginalExamHandler.Available)
		exams.GET("/completed", cfg.OriginalExamHandler.Completed)
		exams.GET("/current", cfg.OriginalExamHandler.Current)
	}

	return router
}
