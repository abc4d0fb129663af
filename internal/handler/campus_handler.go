package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/internal/service"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// CampusHandler handles campus administration endpoints.
type CampusHandler struct {
	service *service.CampusService
}

// NewCampusHandler constructs a campus handler.
func NewCampusHandler(svc *service.CampusService) *CampusHandler {
	return &CampusHandler{service: svc}
}

// List godoc
// @Summary List campuses
// @Tags Campuses
// @Produce json
// @Param include_archived query bool false "Include archived campuses"
// @Success 200 {object} response.Envelope
// @Router /campuses [get]
func (h *CampusHandler) List(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"
	campuses, err := h.service.List(c.Request.Context(), includeArchived)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campuses, nil)
}

// Get godoc
// @Summary Get campus by id
// @Tags Campuses
// @Produce json
// @Param id path string true "Campus ID"
// @Success 200 {object} response.Envelope
// @Router /campuses/{id} [get]
func (h *CampusHandler) Get(c *gin.Context) {
	campus, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campus, nil)
}

// Create godoc
// @Summary Create campus
// @Tags Campuses
// @Accept json
// @Produce json
// @Param payload body models.CampusRequest true "Campus payload"
// @Success 201 {object} response.Envelope
// @Router /campuses [post]
func (h *CampusHandler) Create(c *gin.Context) {
	var req models.CampusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	campus, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, campus)
}

// Update godoc
// @Summary Update campus
// @Tags Campuses
// @Accept json
// @Produce json
// @Param id path string true "Campus ID"
// @Param payload body models.CampusRequest true "Campus payload"
// @Success 200 {object} response.Envelope
// @Router /campuses/{id} [put]
func (h *CampusHandler) Update(c *gin.Context) {
	var req models.CampusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	campus, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campus, nil)
}

// Archive godoc
// @Summary Archive campus
// @Tags Campuses
// @Produce json
// @Param id path string true "Campus ID"
// @Success 204
// @Router /campuses/{id} [delete]
func (h *CampusHandler) Archive(c *gin.Context) {
	if err := h.service.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
