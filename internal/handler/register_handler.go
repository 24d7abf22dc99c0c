package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	"github.com/noah-isme/ripe-api/internal/service"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
	"github.com/noah-isme/ripe-api/pkg/response"
)

type registerService interface {
	Export(ctx context.Context, actor *models.Actor, req dto.RegisterExportRequest) (*dto.RegisterExportResponse, error)
	Open(token string) (*service.RegisterDownload, error)
}

// RegisterHandler serves RIPE register exports.
type RegisterHandler struct {
	service registerService
}

// NewRegisterHandler builds a new handler.
func NewRegisterHandler(service registerService) *RegisterHandler {
	return &RegisterHandler{service: service}
}

// Export godoc
// @Summary Export the RIPE register
// @Tags RIPE
// @Produce json
// @Param year query int false "Submission year"
// @Param type query string false "Submission type" Enums(research, innovation, publication, extension)
// @Param format query string false "Export format" Enums(csv, pdf)
// @Success 200 {object} response.Envelope{data=dto.RegisterExportResponse}
// @Security BearerAuth
// @Router /ripe/register [get]
func (h *RegisterHandler) Export(c *gin.Context) {
	var req dto.RegisterExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query"))
		return
	}
	resp, err := h.service.Export(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Download godoc
// @Summary Download a generated register export
// @Tags RIPE
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /ripe/register/download [get]
func (h *RegisterHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, download.Size, download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, download.Filename),
	})
}
