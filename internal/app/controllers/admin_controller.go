package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/app/models/dto"
	"github.com/oklib/courseflow/internal/app/services"
	"github.com/oklib/courseflow/internal/middleware"
)

// AdminController handles the staff-only endpoints
type AdminController struct {
	requestService   *services.RequestService
	adminService     *services.AdminService
	provisionService *services.ProvisionService
	syncService      *services.SyncService
}

// NewAdminController creates a new AdminController
func NewAdminController(
	requestService *services.RequestService,
	adminService *services.AdminService,
	provisionService *services.ProvisionService,
	syncService *services.SyncService,
) *AdminController {
	return &AdminController{
		requestService:   requestService,
		adminService:     adminService,
		provisionService: provisionService,
		syncService:      syncService,
	}
}

// GetRequests lists every request, optionally filtered by status
func (c *AdminController) GetRequests(ctx *gin.Context) {
	status := ctx.Query("status")

	var err error
	var requests interface{}
	if status != "" {
		requests, err = c.requestService.GetByStatus(ctx, status)
	} else {
		requests, err = c.requestService.GetAll(ctx)
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: requests, Timestamp: time.Now()})
}

// UpdateRequest edits a request from the admin detail view
func (c *AdminController) UpdateRequest(ctx *gin.Context) {
	var req dto.AdminUpdateRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	request, err := c.requestService.AdminUpdate(ctx, ctx.Param("code"), services.AdminUpdateInput{
		TitleOverride:          req.TitleOverride,
		CopyFromCourse:         req.CopyFromCourse,
		Reserves:               req.Reserves,
		LMSOnline:              req.LMSOnline,
		ExcludeAnnouncements:   req.ExcludeAnnouncements,
		AdditionalInstructions: req.AdditionalInstructions,
		AdminInstructions:      req.AdminInstructions,
		Status:                 req.Status,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: request, Timestamp: time.Now()})
}

// ApproveRequest moves a submitted request into the provisioning queue
func (c *AdminController) ApproveRequest(ctx *gin.Context) {
	c.applyEvent(ctx, c.requestService.Approve)
}

// LockRequest freezes a request against provisioning
func (c *AdminController) LockRequest(ctx *gin.Context) {
	c.applyEvent(ctx, c.requestService.Lock)
}

// CancelRequest withdraws a request
func (c *AdminController) CancelRequest(ctx *gin.Context) {
	c.applyEvent(ctx, c.requestService.Cancel)
}

func (c *AdminController) applyEvent(ctx *gin.Context, apply func(context.Context, string) (*models.Request, error)) {
	request, err := apply(ctx, ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: request, Timestamp: time.Now()})
}

// ProvisionRequest runs provisioning for one approved request
func (c *AdminController) ProvisionRequest(ctx *gin.Context) {
	course, err := c.provisionService.Provision(ctx, ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: course, Timestamp: time.Now()})
}

// ProvisionApproved runs provisioning for every approved request
func (c *AdminController) ProvisionApproved(ctx *gin.Context) {
	provisioned, failed, err := c.provisionService.ProvisionApproved(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      gin.H{"provisioned": provisioned, "failed": failed},
		Timestamp: time.Now(),
	})
}

// SyncTerm mirrors a term's registrar data into the local store
func (c *AdminController) SyncTerm(ctx *gin.Context) {
	term, err := strconv.Atoi(ctx.Param("term"))
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid term").
			WithDetails("term must be numeric, e.g. 202510")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	if err := c.syncService.SyncDimensions(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if err := c.syncService.SyncTerm(ctx, term); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: gin.H{"term": term}, Timestamp: time.Now()})
}

// GetAutoAdds lists every standing enrollment policy
func (c *AdminController) GetAutoAdds(ctx *gin.Context) {
	autoAdds, err := c.adminService.GetAutoAdds(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: autoAdds, Timestamp: time.Now()})
}

// CreateAutoAdd records a standing enrollment policy
func (c *AdminController) CreateAutoAdd(ctx *gin.Context) {
	var req dto.CreateAutoAddRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	autoAdd, err := c.adminService.CreateAutoAdd(ctx, req.SchoolCode, req.SubjectCode, req.Username, req.Role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: autoAdd, Timestamp: time.Now()})
}

// DeleteAutoAdd removes a standing enrollment policy
func (c *AdminController) DeleteAutoAdd(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid id")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	if err := c.adminService.DeleteAutoAdd(ctx, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GetSchools lists every school with its configuration
func (c *AdminController) GetSchools(ctx *gin.Context) {
	schools, err := c.adminService.GetSchools(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: schools, Timestamp: time.Now()})
}

// UpdateSchool changes a school's visibility or sub-account pin
func (c *AdminController) UpdateSchool(ctx *gin.Context) {
	var req struct {
		Visible      *bool  `json:"visible"`
		SubAccountID *int64 `json:"subAccountId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	code := ctx.Param("code")
	var school *models.School
	var err error
	if req.Visible != nil {
		if school, err = c.adminService.SetSchoolVisibility(ctx, code, *req.Visible); err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
	}
	if req.SubAccountID != nil {
		if school, err = c.adminService.SetSchoolSubAccount(ctx, code, *req.SubAccountID); err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
	}
	if school == nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Nothing to update").
			WithDetails("provide visible or subAccountId")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: school, Timestamp: time.Now()})
}
