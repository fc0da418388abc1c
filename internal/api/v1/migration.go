package v1

import (
	"context"
	"net/http"

	"github.com/flexprice/planshift/internal/api/dto"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/temporal/models"
	"github.com/flexprice/planshift/internal/types"
	"github.com/gin-gonic/gin"
)

// MigrationWorkflowStarter starts migration executions in the background
type MigrationWorkflowStarter interface {
	StartMigrationExecution(ctx context.Context, input models.MigrationExecutionWorkflowInput) (*models.WorkflowRun, error)
}

type MigrationHandler struct {
	planner  service.MigrationPlannerService
	executor service.MigrationExecutorService
	// workflows is nil when background execution is disabled
	workflows MigrationWorkflowStarter
	log       *logger.Logger
}

func NewMigrationHandler(
	planner service.MigrationPlannerService,
	executor service.MigrationExecutorService,
	workflows MigrationWorkflowStarter,
	log *logger.Logger,
) *MigrationHandler {
	return &MigrationHandler{
		planner:   planner,
		executor:  executor,
		workflows: workflows,
		log:       log,
	}
}

// @Summary Create a migration plan
// @Description Partition the active subscriptions of the source plan into ordered batches
// @Tags Migrations
// @Accept json
// @Produce json
// @Param request body dto.CreateMigrationPlanRequest true "Migration plan"
// @Success 201 {object} migration.MigrationPlan
// @Failure 400 {object} ierr.ErrorResponse
// @Router /create-migration-plan [post]
func (h *MigrationHandler) CreateMigrationPlan(c *gin.Context) {
	var req dto.CreateMigrationPlanRequest
	if !bindRequest(c, &req) {
		return
	}

	plan, err := h.planner.CreateMigrationPlan(c.Request.Context(), req.ToParams())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// @Summary List migration plans
// @Tags Migrations
// @Produce json
// @Param filter query types.MigrationPlanFilter false "Filter"
// @Success 200 {object} dto.ListMigrationPlansResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /migration-plans [get]
func (h *MigrationHandler) ListMigrationPlans(c *gin.Context) {
	filter := types.NewMigrationPlanFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.planner.ListMigrationPlans(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a migration plan
// @Tags Migrations
// @Produce json
// @Param id path string true "Migration ID"
// @Success 200 {object} migration.MigrationPlan
// @Failure 404 {object} ierr.ErrorResponse
// @Router /migration-plan/{id} [get]
func (h *MigrationHandler) GetMigrationPlan(c *gin.Context) {
	plan, err := h.planner.GetMigrationPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// @Summary Execute a migration plan
// @Description Process every batch that has not succeeded yet. With background
// @Description workflows enabled the execution is started and 202 is returned
// @Description unless wait is set.
// @Tags Migrations
// @Accept json
// @Produce json
// @Param id path string true "Migration ID"
// @Param request body dto.ExecuteMigrationPlanRequest false "Execution options"
// @Success 200 {object} dto.ExecuteMigrationPlanResponse
// @Success 202 {object} dto.ExecuteMigrationPlanResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /execute-migration-plan/{id} [post]
func (h *MigrationHandler) ExecuteMigrationPlan(c *gin.Context) {
	var req dto.ExecuteMigrationPlanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	if h.workflows != nil && !req.Wait {
		// fail fast on unknown or closed plans before handing off
		if _, err := h.planner.GetMigrationPlan(ctx, id); err != nil {
			c.Error(err)
			return
		}
		run, err := h.workflows.StartMigrationExecution(ctx, models.MigrationExecutionWorkflowInput{
			MigrationID: id,
			DryRun:      req.DryRun,
			Actor:       types.ResolveActor(ctx, req.Actor),
			RequestID:   types.GetRequestID(ctx),
		})
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, dto.ExecuteMigrationPlanResponse{Workflow: run})
		return
	}

	record, err := h.executor.ExecuteMigrationPlan(ctx, id, req.DryRun, req.Actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ExecuteMigrationPlanResponse{Execution: record})
}

// @Summary List executions of a migration plan
// @Tags Migrations
// @Produce json
// @Param id path string true "Migration ID"
// @Success 200 {object} dto.ListExecutionsResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /migration-plan/{id}/executions [get]
func (h *MigrationHandler) ListExecutions(c *gin.Context) {
	records, err := h.executor.ListExecutions(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.NewFullListResponse(records))
}

// @Summary Cancel a running execution
// @Description Stop the execution running in this process at the next batch boundary
// @Tags Migrations
// @Produce json
// @Param id path string true "Migration ID"
// @Success 202 {object} map[string]string
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /migration-plan/{id}/cancel [post]
func (h *MigrationHandler) CancelExecution(c *gin.Context) {
	if err := h.executor.CancelExecution(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

// @Summary Close a migration plan as rolled back
// @Tags Migrations
// @Accept json
// @Produce json
// @Param id path string true "Migration ID"
// @Param request body dto.MarkRolledBackRequest true "Reason"
// @Success 200 {object} migration.MigrationPlan
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /migration-plan/{id}/mark-rolled-back [post]
func (h *MigrationHandler) MarkRolledBack(c *gin.Context) {
	var req dto.MarkRolledBackRequest
	if !bindRequest(c, &req) {
		return
	}

	plan, err := h.executor.MarkRolledBack(c.Request.Context(), c.Param("id"), req.Reason, req.Actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
