package v1

import (
	"net/http"

	"github.com/flexprice/planshift/internal/api/dto"
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/service"
	"github.com/gin-gonic/gin"
)

type ImpactHandler struct {
	impact     service.ImpactService
	simulation service.SimulationService
	log        *logger.Logger
}

func NewImpactHandler(impact service.ImpactService, simulation service.SimulationService, log *logger.Logger) *ImpactHandler {
	return &ImpactHandler{
		impact:     impact,
		simulation: simulation,
		log:        log,
	}
}

func (h *ImpactHandler) analyze(c *gin.Context, planName string, delta planversion.Delta, actor string) {
	analysis, err := h.impact.AnalyzeChange(c.Request.Context(), planName, delta, actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// @Summary Analyze a pricing change
// @Description Report who a price change affects, the monthly revenue delta and the risk
// @Tags Impact
// @Accept json
// @Produce json
// @Param request body dto.AnalyzePricingChangeRequest true "Pricing change"
// @Success 200 {object} impact.ImpactAnalysis
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /analyze-pricing-change [post]
func (h *ImpactHandler) AnalyzePricingChange(c *gin.Context) {
	var req dto.AnalyzePricingChangeRequest
	if !bindRequest(c, &req) {
		return
	}
	h.analyze(c, req.PlanName, req.ToDelta(), req.Actor)
}

// @Summary Analyze a feature change
// @Tags Impact
// @Accept json
// @Produce json
// @Param request body dto.AnalyzeFeatureChangeRequest true "Feature change"
// @Success 200 {object} impact.ImpactAnalysis
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /analyze-feature-change [post]
func (h *ImpactHandler) AnalyzeFeatureChange(c *gin.Context) {
	var req dto.AnalyzeFeatureChangeRequest
	if !bindRequest(c, &req) {
		return
	}
	h.analyze(c, req.PlanName, req.ToDelta(), req.Actor)
}

// @Summary Analyze a limit change
// @Tags Impact
// @Accept json
// @Produce json
// @Param request body dto.AnalyzeLimitChangeRequest true "Limit change"
// @Success 200 {object} impact.ImpactAnalysis
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /analyze-limit-change [post]
func (h *ImpactHandler) AnalyzeLimitChange(c *gin.Context) {
	var req dto.AnalyzeLimitChangeRequest
	if !bindRequest(c, &req) {
		return
	}
	h.analyze(c, req.PlanName, req.ToDelta(), req.Actor)
}

// @Summary Analyze disabling a plan
// @Tags Impact
// @Accept json
// @Produce json
// @Param request body dto.AnalyzePlanDisableRequest true "Plan"
// @Success 200 {object} impact.ImpactAnalysis
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /analyze-plan-disable [post]
func (h *ImpactHandler) AnalyzePlanDisable(c *gin.Context) {
	var req dto.AnalyzePlanDisableRequest
	if !bindRequest(c, &req) {
		return
	}
	h.analyze(c, req.PlanName, planversion.DisableDelta{}, req.Actor)
}

// @Summary Simulate a composite change
// @Description Analyze every populated part of a change without committing anything
// @Tags Impact
// @Accept json
// @Produce json
// @Param request body dto.SimulateChangeRequest true "Composite change"
// @Success 200 {object} impact.SimulationResult
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /simulate-change [post]
func (h *ImpactHandler) SimulateChange(c *gin.Context) {
	var req dto.SimulateChangeRequest
	if !bindRequest(c, &req) {
		return
	}

	result, err := h.simulation.SimulateChange(c.Request.Context(), req.PlanName, req.ToChange(), req.Actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
