package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/middleware"
	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
	"github.com/noah-isme/ripe-api/pkg/response"
)

type ripeAllocator interface {
	Allocate(ctx context.Context, req dto.AllocateRequest, actor *models.Actor) (*dto.AllocateResponse, error)
}

type ripePreviewer interface {
	Preview(ctx context.Context, req dto.PreviewRequest, actor *models.Actor) (*dto.PreviewResponse, error)
}

// RipeHandler exposes RIPE code allocation and preview endpoints.
type RipeHandler struct {
	allocator ripeAllocator
	previewer ripePreviewer
}

// NewRipeHandler builds a new handler.
func NewRipeHandler(allocator ripeAllocator, previewer ripePreviewer) *RipeHandler {
	return &RipeHandler{allocator: allocator, previewer: previewer}
}

// Allocate godoc
// @Summary Assign the next RIPE code to a submission
// @Description Locks the submission, takes the next study number for its type, year and organisational selection, and marks it accepted.
// @Tags RIPE
// @Accept json
// @Produce json
// @Param payload body dto.AllocateRequest true "Submission and organisational selection"
// @Success 201 {object} response.Envelope{data=dto.AllocateResponse}
// @Failure 400 {object} response.Envelope{data=dto.AllocateResponse}
// @Failure 403 {object} response.Envelope{data=dto.AllocateResponse}
// @Failure 404 {object} response.Envelope{data=dto.AllocateResponse}
// @Failure 409 {object} response.Envelope{data=dto.AllocateResponse}
// @Security BearerAuth
// @Router /ripe/allocations [post]
func (h *RipeHandler) Allocate(c *gin.Context) {
	var req dto.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
		response.ErrorWithData(c, appErr, failedAllocation(appErr))
		return
	}

	resp, err := h.allocator.Allocate(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		response.ErrorWithData(c, appErr, failedAllocation(appErr))
		return
	}
	response.Created(c, resp)
}

// Preview godoc
// @Summary Preview the next RIPE code
// @Description Read-only. Returns the option lists for the next selection step and the code the next allocation would receive. Failures answer 200 with success=false. meta.generated_at marks the snapshot time; a concurrent allocation may take the previewed number first.
// @Tags RIPE
// @Produce json
// @Param submission_id query int true "Submission ID"
// @Param college_id query int false "Selected college, 0 for none"
// @Param program_id query int false "Selected program, 0 for none"
// @Param project_id query int false "Selected project, 0 for none"
// @Success 200 {object} response.Envelope{data=dto.PreviewResponse}
// @Security BearerAuth
// @Router /ripe/preview [get]
func (h *RipeHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview query")
		response.Degraded(c, appErr, dto.NewFailedPreview(appErr.Message), middleware.ExtractMeta(c))
		return
	}

	middleware.SetMeta(c, "generated_at", time.Now().UTC())
	resp, err := h.previewer.Preview(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		if resp == nil {
			resp = dto.NewFailedPreview(appErrors.FromError(err).Message)
		}
		response.Degraded(c, err, resp, middleware.ExtractMeta(c))
		return
	}
	response.JSON(c, http.StatusOK, resp, nil, middleware.ExtractMeta(c))
}

func failedAllocation(err *appErrors.Error) *dto.AllocateResponse {
	return &dto.AllocateResponse{Success: false, Message: err.Message}
}
