package service

import (
	"github.com/flexprice/planshift/internal/cache"
	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/domain/changehistory"
	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/domain/rollback"
	"github.com/flexprice/planshift/internal/domain/subscription"
	"github.com/flexprice/planshift/internal/interfaces"
	"github.com/flexprice/planshift/internal/lock"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
	"github.com/flexprice/planshift/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Sentry *sentry.Service
	Locker lock.Locker

	// Repositories
	PlanVersionRepo   planversion.Repository
	SubscriptionStore subscription.Store
	MigrationRepo     migration.Repository
	ExecutionRepo     migration.ExecutionRepository
	RollbackRepo      rollback.Repository
	ChangeHistoryRepo changehistory.Repository

	// Collaborators
	BillingGateway interfaces.BillingGateway
	Notifier       interfaces.NotificationSender
}

// NewServiceParams is the fx constructor of ServiceParams
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	sentry *sentry.Service,
	locker lock.Locker,
	planVersionRepo planversion.Repository,
	subscriptionStore subscription.Store,
	migrationRepo migration.Repository,
	executionRepo migration.ExecutionRepository,
	rollbackRepo rollback.Repository,
	changeHistoryRepo changehistory.Repository,
	billingGateway interfaces.BillingGateway,
	notifier interfaces.NotificationSender,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            config,
		DB:                db,
		Cache:             cache,
		Sentry:            sentry,
		Locker:            locker,
		PlanVersionRepo:   planVersionRepo,
		SubscriptionStore: subscriptionStore,
		MigrationRepo:     migrationRepo,
		ExecutionRepo:     executionRepo,
		RollbackRepo:      rollbackRepo,
		ChangeHistoryRepo: changeHistoryRepo,
		BillingGateway:    billingGateway,
		Notifier:          notifier,
	}
}
