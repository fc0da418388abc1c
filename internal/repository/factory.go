package repository

import (
	"github.com/flexprice/planshift/internal/domain/changehistory"
	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/domain/rollback"
	"github.com/flexprice/planshift/internal/domain/subscription"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
	postgresRepo "github.com/flexprice/planshift/internal/repository/postgres"
)

func NewPlanVersionRepository(db *postgres.DB, logger *logger.Logger) planversion.Repository {
	return postgresRepo.NewPlanVersionRepository(db, logger)
}

func NewSubscriptionStore(db *postgres.DB, logger *logger.Logger) subscription.Store {
	return postgresRepo.NewSubscriptionStore(db, logger)
}

func NewMigrationRepository(db *postgres.DB, logger *logger.Logger) migration.Repository {
	return postgresRepo.NewMigrationRepository(db, logger)
}

func NewExecutionRepository(db *postgres.DB, logger *logger.Logger) migration.ExecutionRepository {
	return postgresRepo.NewExecutionRepository(db, logger)
}

func NewRollbackRepository(db *postgres.DB, logger *logger.Logger) rollback.Repository {
	return postgresRepo.NewRollbackRepository(db, logger)
}

func NewChangeHistoryRepository(db *postgres.DB, logger *logger.Logger) changehistory.Repository {
	return postgresRepo.NewChangeHistoryRepository(db, logger)
}
