package api

import (
	v1 "github.com/flexprice/planshift/internal/api/v1"
	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/rest/middleware"
	"github.com/flexprice/planshift/internal/sentry"
	"github.com/flexprice/planshift/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health    *v1.HealthHandler
	Plan      *v1.PlanHandler
	Impact    *v1.ImpactHandler
	Migration *v1.MigrationHandler
	History   *v1.HistoryHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, sentrySvc *sentry.Service) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(logger, sentrySvc),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.OperatorMiddleware, middleware.SentryScopeMiddleware)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	router.GET("/health", handlers.Health.Health)

	plans := router.Group("/plans")
	{
		plans.POST("", handlers.Plan.CreatePlan)
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:name", handlers.Plan.GetPlan)
		plans.GET("/:name/versions", handlers.Plan.ListVersions)
		plans.POST("/:name/versions", handlers.Plan.CreateVersion)
		plans.GET("/:name/versions/:version", handlers.Plan.GetVersion)
		plans.GET("/:name/rollbacks", handlers.Plan.ListRollbacks)
	}

	// Impact analysis and simulation
	router.POST("/analyze-pricing-change", handlers.Impact.AnalyzePricingChange)
	router.POST("/analyze-feature-change", handlers.Impact.AnalyzeFeatureChange)
	router.POST("/analyze-limit-change", handlers.Impact.AnalyzeLimitChange)
	router.POST("/analyze-plan-disable", handlers.Impact.AnalyzePlanDisable)
	router.POST("/simulate-change", handlers.Impact.SimulateChange)

	// Migrations
	router.POST("/create-migration-plan", handlers.Migration.CreateMigrationPlan)
	router.POST("/execute-migration-plan/:id", handlers.Migration.ExecuteMigrationPlan)
	router.GET("/migration-plans", handlers.Migration.ListMigrationPlans)
	migrations := router.Group("/migration-plan/:id")
	{
		migrations.GET("", handlers.Migration.GetMigrationPlan)
		migrations.GET("/executions", handlers.Migration.ListExecutions)
		migrations.POST("/cancel", handlers.Migration.CancelExecution)
		migrations.POST("/mark-rolled-back", handlers.Migration.MarkRolledBack)
	}

	// Rollback and history
	router.POST("/rollback-plan-change", handlers.History.RollbackPlanChange)
	router.GET("/impact-history", handlers.History.ListImpactHistory)
	router.GET("/impact-history/verify", handlers.History.VerifyChain)
	router.GET("/risk-assessment/:plan_name", handlers.History.GetRiskAssessment)
}
