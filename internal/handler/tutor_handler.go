package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/internal/service"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// TutorHandler handles tutor (guardian) endpoints.
type TutorHandler struct {
	service *service.TutorService
}

// NewTutorHandler constructs a tutor handler.
func NewTutorHandler(svc *service.TutorService) *TutorHandler {
	return &TutorHandler{service: svc}
}

// List godoc
// @Summary List active tutors in the selected campus
// @Tags Tutors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tutors, err := h.service.ListByCampus(c.Request.Context(), claims.SelectedCampusID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, nil)
}

// Get godoc
// @Summary Get tutor by id with linked students
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	tutor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Update godoc
// @Summary Update tutor contact details
// @Tags Tutors
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body models.TutorPayload true "Tutor payload"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id} [put]
func (h *TutorHandler) Update(c *gin.Context) {
	var payload models.TutorPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.service.Update(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}
