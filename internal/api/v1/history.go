package v1

import (
	"net/http"

	"github.com/flexprice/planshift/internal/api/dto"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/types"
	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	history   service.ChangeHistoryService
	rollbacks service.RollbackService
	log       *logger.Logger
}

func NewHistoryHandler(history service.ChangeHistoryService, rollbacks service.RollbackService, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		history:   history,
		rollbacks: rollbacks,
		log:       log,
	}
}

// @Summary Roll a plan back to an earlier version
// @Description Repoint the plan to an existing lower version. Subscriptions are not moved.
// @Tags Rollbacks
// @Accept json
// @Produce json
// @Param request body dto.RollbackPlanChangeRequest true "Rollback"
// @Success 201 {object} rollback.Record
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /rollback-plan-change [post]
func (h *HistoryHandler) RollbackPlanChange(c *gin.Context) {
	var req dto.RollbackPlanChangeRequest
	if !bindRequest(c, &req) {
		return
	}

	record, err := h.rollbacks.RollbackPlanChange(c.Request.Context(), req.PlanName, req.RollbackToVersion, req.Reason, req.Actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// @Summary List the change history
// @Tags History
// @Produce json
// @Param filter query types.ChangeHistoryFilter false "Filter"
// @Success 200 {object} types.ListResponse[changehistory.Entry]
// @Failure 400 {object} ierr.ErrorResponse
// @Router /impact-history [get]
func (h *HistoryHandler) ListImpactHistory(c *gin.Context) {
	filter := types.NewChangeHistoryFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Verify the change history chain
// @Description Recompute every entry hash and report the first broken link
// @Tags History
// @Produce json
// @Success 200 {object} changehistory.ChainVerification
// @Router /impact-history/verify [get]
func (h *HistoryHandler) VerifyChain(c *gin.Context) {
	result, err := h.history.VerifyChain(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Risk assessment of a plan
// @Tags History
// @Produce json
// @Param plan_name path string true "Plan name"
// @Success 200 {object} impact.RiskAssessment
// @Failure 404 {object} ierr.ErrorResponse
// @Router /risk-assessment/{plan_name} [get]
func (h *HistoryHandler) GetRiskAssessment(c *gin.Context) {
	assessment, err := h.history.AssessRisk(c.Request.Context(), c.Param("plan_name"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}
