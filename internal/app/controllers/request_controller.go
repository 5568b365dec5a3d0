package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oklib/courseflow/internal/app/models/dto"
	"github.com/oklib/courseflow/internal/app/services"
	"github.com/oklib/courseflow/internal/middleware"
)

// RequestController handles the requester-facing request endpoints
type RequestController struct {
	requestService *services.RequestService
}

// NewRequestController creates a new RequestController
func NewRequestController(requestService *services.RequestService) *RequestController {
	return &RequestController{requestService: requestService}
}

// Submit creates a provisioning request for a section
func (c *RequestController) Submit(ctx *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	callerID, ok := middleware.CallerID(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(detail))
		return
	}

	input := services.SubmitRequestInput{
		SectionCode:            req.SectionCode,
		RequesterID:            callerID,
		ProxyRequesterUsername: req.ProxyRequester,
		TitleOverride:          req.TitleOverride,
		CopyFromCourse:         req.CopyFromCourse,
		Reserves:               req.Reserves,
		LMSOnline:              req.LMSOnline,
		ExcludeAnnouncements:   req.ExcludeAnnouncements,
		AdditionalInstructions: req.AdditionalInstructions,
		IncludedSectionCodes:   req.IncludedSections,
	}
	for _, entry := range req.AdditionalEnrollments {
		input.AdditionalEnrollments = append(input.AdditionalEnrollments, services.SubmitEnrollment{
			Username: entry.Username,
			Role:     entry.Role,
		})
	}

	request, err := c.requestService.Submit(ctx, input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: request, Timestamp: time.Now()})
}

// Get retrieves a request with its enrollments and included sections
func (c *RequestController) Get(ctx *gin.Context) {
	request, err := c.requestService.Get(ctx, ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: request, Timestamp: time.Now()})
}

// GetMine lists the requests the caller submitted or was proxied on
func (c *RequestController) GetMine(ctx *gin.Context) {
	callerID, ok := middleware.CallerID(ctx)
	if !ok {
		detail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(detail))
		return
	}

	requests, err := c.requestService.GetByRequester(ctx, callerID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: requests, Timestamp: time.Now()})
}

// GetCanvasSite reports the already-provisioned site for a section, if any
func (c *RequestController) GetCanvasSite(ctx *gin.Context) {
	course, err := c.requestService.CanvasSite(ctx, ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var data *dto.CanvasSiteResponse
	if course != nil {
		data = &dto.CanvasSiteResponse{ID: course.ID, Name: course.Name}
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: data, Timestamp: time.Now()})
}
