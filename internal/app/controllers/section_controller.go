package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oklib/courseflow/internal/app/models/dto"
	"github.com/oklib/courseflow/internal/app/services"
	"github.com/oklib/courseflow/internal/middleware"
)

// SectionController handles section browsing endpoints
type SectionController struct {
	sectionService *services.SectionService
}

// NewSectionController creates a new SectionController
func NewSectionController(sectionService *services.SectionService) *SectionController {
	return &SectionController{sectionService: sectionService}
}

// GetByTerm lists a term's sections. With requested=false only sections
// that do not yet have a provisioning request are returned.
func (c *SectionController) GetByTerm(ctx *gin.Context) {
	term, err := strconv.Atoi(ctx.Param("term"))
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid term").
			WithDetails("term must be numeric, e.g. 202510")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
		return
	}

	onlyUnrequested := ctx.Query("requested") == "false"

	sections, err := c.sectionService.GetByTerm(ctx, term, onlyUnrequested, ctx.Query("search"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: sections, Timestamp: time.Now()})
}

// Get retrieves a single section with its related sections
func (c *SectionController) Get(ctx *gin.Context) {
	section, err := c.sectionService.Get(ctx, ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: section, Timestamp: time.Now()})
}
