package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/internal/service"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// TransferHandler handles campus-transfer endpoints.
type TransferHandler struct {
	service *service.TransferService
	metrics *service.MetricsService
}

// NewTransferHandler constructs a transfer handler.
func NewTransferHandler(svc *service.TransferService, metrics *service.MetricsService) *TransferHandler {
	return &TransferHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Transfer a student between campuses
// @Description Runs all preconditions and applies every transfer effect atomically
// @Tags Transfers
// @Accept json
// @Produce json
// @Param payload body models.CreateTransferRequest true "Transfer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)

	var req models.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	transfer, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		h.metrics.RecordTransfer("rejected")
		response.Error(c, err)
		return
	}

	h.metrics.RecordTransfer("completed")
	response.Created(c, transfer)
}

// Get godoc
// @Summary Get transfer by id
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) {
	transfer, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfer, nil)
}

// List godoc
// @Summary List transfers touching a campus
// @Tags Transfers
// @Produce json
// @Param campus_id query string false "Campus (defaults to the selected campus)"
// @Success 200 {object} response.Envelope
// @Router /transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	campusID, err := campusScope(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	transfers, err := h.service.ListByCampus(c.Request.Context(), campusID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfers, nil)
}

// Export godoc
// @Summary Export the selected campus transfer history
// @Tags Transfers
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /transfers/export [get]
func (h *TransferHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	format := c.DefaultQuery("format", "csv")

	campusID, err := campusScope(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, contentType, err := h.service.Export(c.Request.Context(), campusID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("transfers-%s-%s.%s", campusID, time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
