package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/service"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// SheetHandler handles the shared sheet-music catalogue. The catalogue
// is network-wide, not campus-scoped; files are only reachable through
// short-lived signed URLs.
type SheetHandler struct {
	service *service.SheetService
}

// NewSheetHandler constructs a sheet handler.
func NewSheetHandler(svc *service.SheetService) *SheetHandler {
	return &SheetHandler{service: svc}
}

// List godoc
// @Summary List sheet music
// @Tags Sheets
// @Produce json
// @Param search query string false "Search by name or author"
// @Success 200 {object} response.Envelope
// @Router /sheets [get]
func (h *SheetHandler) List(c *gin.Context) {
	sheets, err := h.service.List(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheets, nil)
}

// Get godoc
// @Summary Get sheet metadata by id
// @Tags Sheets
// @Produce json
// @Param id path string true "Sheet ID"
// @Success 200 {object} response.Envelope
// @Router /sheets/{id} [get]
func (h *SheetHandler) Get(c *gin.Context) {
	sheet, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Upload godoc
// @Summary Upload a sheet-music file
// @Tags Sheets
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Sheet file"
// @Param name formData string true "Sheet name"
// @Param author formData string true "Author"
// @Param genre formData string true "Genre"
// @Success 201 {object} response.Envelope
// @Router /sheets [post]
func (h *SheetHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	upload := service.SheetUpload{
		Name:     strings.TrimSpace(c.PostForm("name")),
		Author:   strings.TrimSpace(c.PostForm("author")),
		Genre:    strings.TrimSpace(c.PostForm("genre")),
		Filename: fileHeader.Filename,
		MIME:     fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		Content:  file,
	}

	sheet, err := h.service.Upload(c.Request.Context(), upload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sheet)
}

// SignedURL godoc
// @Summary Issue a short-lived download URL for a sheet
// @Tags Sheets
// @Produce json
// @Param id path string true "Sheet ID"
// @Success 200 {object} response.Envelope
// @Router /sheets/{id}/url [get]
func (h *SheetHandler) SignedURL(c *gin.Context) {
	token, expiresAt, err := h.service.SignedURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/files/sheets?token=" + token,
		"expires_at": expiresAt,
	}, nil)
}

// Download serves a file for a valid signed token. The route is public:
// the token itself is the credential.
func (h *SheetHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	download, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}

	extraHeaders := map[string]string{
		"Content-Disposition": "attachment; filename=\"" + download.Filename + "\"",
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, extraHeaders)
}

// Archive godoc
// @Summary Archive sheet
// @Tags Sheets
// @Produce json
// @Param id path string true "Sheet ID"
// @Success 204
// @Router /sheets/{id} [delete]
func (h *SheetHandler) Archive(c *gin.Context) {
	if err := h.service.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
