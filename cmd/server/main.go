package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flexprice/planshift/internal/api"
	v1 "github.com/flexprice/planshift/internal/api/v1"
	"github.com/flexprice/planshift/internal/cache"
	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/integration"
	"github.com/flexprice/planshift/internal/lock"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/notification"
	"github.com/flexprice/planshift/internal/postgres"
	"github.com/flexprice/planshift/internal/pubsub"
	"github.com/flexprice/planshift/internal/pubsub/kafka"
	"github.com/flexprice/planshift/internal/pubsub/memory"
	"github.com/flexprice/planshift/internal/redis"
	"github.com/flexprice/planshift/internal/repository"
	"github.com/flexprice/planshift/internal/sentry"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/temporal"
	"github.com/flexprice/planshift/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Planshift API
// @version 1.0
// @description Plan change impact analysis, subscription migration and rollback
// @BasePath /v1
// @schemes http https

func init() {
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Repositories
			repository.NewPlanVersionRepository,
			repository.NewSubscriptionStore,
			repository.NewMigrationRepository,
			repository.NewExecutionRepository,
			repository.NewRollbackRepository,
			repository.NewChangeHistoryRepository,

			// Locks, billing and notifications
			provideRedisClient,
			provideLocker,
			integration.NewBillingGateway,
			providePubSub,
			notification.NewPublisher,

			// Temporal
			provideTemporalClient,
		),
		sentry.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewPlanVersionService,
			service.NewImpactService,
			service.NewSimulationService,
			service.NewMigrationPlannerService,
			service.NewMigrationExecutorService,
			service.NewRollbackService,
			service.NewChangeHistoryService,
		),
	)

	// API and workers
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			runSchemaMigrations,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideDBClient(db *postgres.DB, sentrySvc *sentry.Service, log *logger.Logger) postgres.IClient {
	return postgres.NewSentryClient(db, sentrySvc, log)
}

// provideRedisClient connects to redis only when a component needs it
func provideRedisClient(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*redis.Client, error) {
	if cfg.Lock.Backend != types.LockBackendRedis {
		return nil, nil
	}

	client, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideLocker(cfg *config.Configuration, rdb *redis.Client, log *logger.Logger) lock.Locker {
	if cfg.Lock.Backend == types.LockBackendRedis && rdb != nil {
		log.Infow("using redis migration locks")
		return lock.NewRedisLocker(rdb.GetClient(), log)
	}
	log.Infow("using in-process migration locks")
	return lock.NewMemoryLocker()
}

func providePubSub(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (pubsub.Publisher, error) {
	var (
		ps  pubsub.PubSub
		err error
	)
	switch cfg.Notification.PubSub {
	case types.KafkaPubSub:
		ps, err = kafka.NewPubSub(cfg, log)
		if err != nil {
			return nil, err
		}
	default:
		ps = memory.NewPubSub(log)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}

func provideTemporalClient(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*temporal.TemporalClient, error) {
	if !cfg.Temporal.Enabled {
		log.Infow("temporal is disabled, migrations execute in-process")
		return nil, nil
	}

	client, err := temporal.NewTemporalClient(cfg.Temporal, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})
	return client, nil
}

func provideHandlers(
	logger *logger.Logger,
	db *postgres.DB,
	rdb *redis.Client,
	temporalClient *temporal.TemporalClient,
	planVersionService service.PlanVersionService,
	impactService service.ImpactService,
	simulationService service.SimulationService,
	plannerService service.MigrationPlannerService,
	executorService service.MigrationExecutorService,
	rollbackService service.RollbackService,
	historyService service.ChangeHistoryService,
) api.Handlers {
	checks := map[string]v1.HealthCheck{
		"postgres": db.PingContext,
	}
	if rdb != nil {
		checks["redis"] = rdb.Ping
	}

	// A nil *TemporalClient must not become a non-nil interface
	var workflows v1.MigrationWorkflowStarter
	if temporalClient != nil {
		workflows = temporalClient
	}

	return api.Handlers{
		Health:    v1.NewHealthHandler(checks, logger),
		Plan:      v1.NewPlanHandler(planVersionService, rollbackService, logger),
		Impact:    v1.NewImpactHandler(impactService, simulationService, logger),
		Migration: v1.NewMigrationHandler(plannerService, executorService, workflows, logger),
		History:   v1.NewHistoryHandler(historyService, rollbackService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger, sentrySvc *sentry.Service) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger, sentrySvc)
}

func runSchemaMigrations(lc fx.Lifecycle, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("applying schema migrations")
			return db.Migrate(ctx)
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	temporalClient *temporal.TemporalClient,
	executor service.MigrationExecutorService,
	db *postgres.DB,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startTemporalWorker(lc, temporalClient, cfg, executor, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		if temporalClient == nil {
			log.Fatal("temporal must be enabled for worker mode")
		}
		startTemporalWorker(lc, temporalClient, cfg, executor, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

func startTemporalWorker(
	lc fx.Lifecycle,
	temporalClient *temporal.TemporalClient,
	cfg *config.Configuration,
	executor service.MigrationExecutorService,
	log *logger.Logger,
) {
	if temporalClient == nil {
		return
	}
	worker := temporal.NewWorker(temporalClient, cfg.Temporal, executor, log)
	worker.RegisterWithLifecycle(lc)
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
