package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/internal/service"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// InstrumentHandler handles instrument inventory endpoints.
type InstrumentHandler struct {
	service *service.InstrumentService
}

// NewInstrumentHandler constructs an instrument handler.
func NewInstrumentHandler(svc *service.InstrumentService) *InstrumentHandler {
	return &InstrumentHandler{service: svc}
}

// List godoc
// @Summary List instruments in a campus
// @Tags Instruments
// @Produce json
// @Param campus_id query string false "Campus (defaults to the selected campus)"
// @Success 200 {object} response.Envelope
// @Router /instruments [get]
func (h *InstrumentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	campusID, err := campusScope(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	instruments, err := h.service.ListByCampus(c.Request.Context(), campusID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instruments, nil)
}

// Get godoc
// @Summary Get instrument by id
// @Tags Instruments
// @Produce json
// @Param id path string true "Instrument ID"
// @Success 200 {object} response.Envelope
// @Router /instruments/{id} [get]
func (h *InstrumentHandler) Get(c *gin.Context) {
	instrument, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instrument, nil)
}

// Create godoc
// @Summary Register instrument in the selected campus
// @Tags Instruments
// @Accept json
// @Produce json
// @Param payload body models.CreateInstrumentRequest true "Instrument payload"
// @Success 201 {object} response.Envelope
// @Router /instruments [post]
func (h *InstrumentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)

	var req models.CreateInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	instrument, err := h.service.Create(c.Request.Context(), req, claims.SelectedCampusID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instrument)
}

// Update godoc
// @Summary Update instrument and its assignment
// @Tags Instruments
// @Accept json
// @Produce json
// @Param id path string true "Instrument ID"
// @Param payload body models.UpdateInstrumentRequest true "Instrument payload"
// @Success 200 {object} response.Envelope
// @Router /instruments/{id} [put]
func (h *InstrumentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)

	var req models.UpdateInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	instrument, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instrument, nil)
}

// Delete godoc
// @Summary Delete instrument
// @Tags Instruments
// @Produce json
// @Param id path string true "Instrument ID"
// @Success 204
// @Router /instruments/{id} [delete]
func (h *InstrumentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
