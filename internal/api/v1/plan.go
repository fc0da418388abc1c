package v1

import (
	"net/http"
	"strconv"

	"github.com/flexprice/planshift/internal/api/dto"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/types"
	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	service   service.PlanVersionService
	rollbacks service.RollbackService
	log       *logger.Logger
}

func NewPlanHandler(
	service service.PlanVersionService,
	rollbacks service.RollbackService,
	log *logger.Logger,
) *PlanHandler {
	return &PlanHandler{
		service:   service,
		rollbacks: rollbacks,
		log:       log,
	}
}

// @Summary Create a new plan
// @Description Create a plan together with its first version
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan body dto.CreatePlanRequest true "Plan definition"
// @Success 201 {object} planversion.PlanVersion
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req dto.CreatePlanRequest
	if !bindRequest(c, &req) {
		return
	}

	resp, err := h.service.CreatePlan(c.Request.Context(), req.ToPlanVersion(), req.Actor)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List plans
// @Tags Plans
// @Produce json
// @Success 200 {object} dto.ListPlansResponse
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.NewFullListResponse(plans))
}

// @Summary Get a plan
// @Description Get a plan and its current version
// @Tags Plans
// @Produce json
// @Param name path string true "Plan name"
// @Success 200 {object} dto.PlanResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /plans/{name} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	name := c.Param("name")

	plan, err := h.service.GetPlan(c.Request.Context(), name)
	if err != nil {
		c.Error(err)
		return
	}
	current, err := h.service.GetCurrentVersion(c.Request.Context(), name)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.PlanResponse{Plan: plan, CurrentVersion: current})
}

// @Summary List plan versions
// @Tags Plans
// @Produce json
// @Param name path string true "Plan name"
// @Success 200 {object} dto.ListPlanVersionsResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /plans/{name}/versions [get]
func (h *PlanHandler) ListVersions(c *gin.Context) {
	versions, err := h.service.ListVersions(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.NewFullListResponse(versions))
}

// @Summary Get a plan version
// @Tags Plans
// @Produce json
// @Param name path string true "Plan name"
// @Param version path int true "Version number"
// @Success 200 {object} planversion.PlanVersion
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /plans/{name}/versions/{version} [get]
func (h *PlanHandler) GetVersion(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("version"))
	if err != nil || number < 1 {
		c.Error(ierr.NewError("invalid version number").
			WithHint("Version number must be a positive integer").
			WithReportableDetails(map[string]any{
				"version": c.Param("version"),
			}).
			Mark(ierr.ErrValidation))
		return
	}

	version, err := h.service.GetVersion(c.Request.Context(), c.Param("name"), number)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// @Summary Create a plan version
// @Description Apply a partial change on top of the current version and make it current
// @Tags Plans
// @Accept json
// @Produce json
// @Param name path string true "Plan name"
// @Param change body dto.CreateVersionRequest true "Change"
// @Success 201 {object} planversion.PlanVersion
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /plans/{name}/versions [post]
func (h *PlanHandler) CreateVersion(c *gin.Context) {
	var req dto.CreateVersionRequest
	if !bindRequest(c, &req) {
		return
	}

	version, err := h.service.CreateVersion(c.Request.Context(), c.Param("name"), req.ToChange(), req.Actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, version)
}

// @Summary List rollbacks of a plan
// @Tags Rollbacks
// @Produce json
// @Param name path string true "Plan name"
// @Success 200 {object} dto.ListRollbacksResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /plans/{name}/rollbacks [get]
func (h *PlanHandler) ListRollbacks(c *gin.Context) {
	records, err := h.rollbacks.ListRollbacks(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.NewFullListResponse(records))
}
