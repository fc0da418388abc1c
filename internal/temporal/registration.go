package temporal

import (
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/temporal/activities"
	"github.com/flexprice/planshift/internal/temporal/models"
	"github.com/flexprice/planshift/internal/temporal/workflows"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// Registry is the subset of worker.Worker used to register workflows and activities
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// RegisterWorkflowsAndActivities registers the migration workflow and its activity.
// The executor must be the process-wide instance so cancellation reaches it.
func RegisterWorkflowsAndActivities(r Registry, executor service.MigrationExecutorService, log *logger.Logger) {
	r.RegisterWorkflowWithOptions(workflows.MigrationExecutionWorkflow, workflow.RegisterOptions{
		Name: models.MigrationExecutionWorkflowName,
	})

	migrationActivities := activities.NewMigrationActivities(executor, log)
	r.RegisterActivityWithOptions(migrationActivities.ExecuteMigrationPlan, activity.RegisterOptions{
		Name: models.ExecuteMigrationPlanActivityName,
	})

	log.Infow("registered temporal workflows and activities",
		"workflow", models.MigrationExecutionWorkflowName,
		"activity", models.ExecuteMigrationPlanActivityName)
}
