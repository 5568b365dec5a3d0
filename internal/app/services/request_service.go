package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/app/repositories"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/logger"
)

// SubmitEnrollment is one manually specified (username, role) pair on a
// submission.
type SubmitEnrollment struct {
	Username string
	Role     string
}

// SubmitRequestInput carries a user's provisioning submission.
type SubmitRequestInput struct {
	SectionCode            string
	RequesterID            int64
	ProxyRequesterUsername string
	TitleOverride          string
	CopyFromCourse         *int64
	Reserves               bool
	LMSOnline              bool
	ExcludeAnnouncements   bool
	AdditionalInstructions string
	IncludedSectionCodes   []string
	AdditionalEnrollments  []SubmitEnrollment
}

// AdminUpdateInput carries the fields an administrator may edit on a
// request's detail view.
type AdminUpdateInput struct {
	TitleOverride          string
	CopyFromCourse         *int64
	Reserves               bool
	LMSOnline              bool
	ExcludeAnnouncements   bool
	AdditionalInstructions string
	AdminInstructions      string
	Status                 string
}

// RequestService handles business logic for provisioning requests.
type RequestService struct {
	requests    *repositories.RequestRepository
	sections    *repositories.SectionRepository
	enrollments *repositories.EnrollmentRepository
	directory   *DirectoryService
	lifecycle   *Lifecycle
	canvas      canvas.API
	sisPrefix   string
}

// NewRequestService creates a new request service.
func NewRequestService(
	requests *repositories.RequestRepository,
	sections *repositories.SectionRepository,
	enrollments *repositories.EnrollmentRepository,
	directory *DirectoryService,
	lifecycle *Lifecycle,
	api canvas.API,
	sisPrefix string,
) *RequestService {
	return &RequestService{
		requests:    requests,
		sections:    sections,
		enrollments: enrollments,
		directory:   directory,
		lifecycle:   lifecycle,
		canvas:      api,
		sisPrefix:   sisPrefix,
	}
}

// Submit creates a provisioning request for a section. The section must not
// already be requested, directly or via inclusion in another request.
func (s *RequestService) Submit(ctx context.Context, input SubmitRequestInput) (*models.Request, error) {
	section, err := s.sections.GetByCode(ctx, input.SectionCode)
	if err != nil {
		return nil, err
	}
	if section.Requested {
		return nil, apperrors.ErrSectionAlreadyRequested
	}

	request := &models.Request{
		SectionCode:            section.Code,
		RequesterID:            input.RequesterID,
		TitleOverride:          input.TitleOverride,
		CopyFromCourse:         input.CopyFromCourse,
		Reserves:               input.Reserves,
		LMSOnline:              input.LMSOnline,
		ExcludeAnnouncements:   input.ExcludeAnnouncements,
		AdditionalInstructions: input.AdditionalInstructions,
		Status:                 models.StatusSubmitted,
	}

	if input.ProxyRequesterUsername != "" {
		proxy, err := s.directory.EnsureUser(ctx, input.ProxyRequesterUsername)
		if err != nil {
			return nil, err
		}
		request.ProxyRequesterID = &proxy.ID
	}

	// Validate roles before any row is written.
	type resolvedEnrollment struct {
		userID int64
		role   models.Role
	}
	resolved := make([]resolvedEnrollment, 0, len(input.AdditionalEnrollments))
	for _, entry := range input.AdditionalEnrollments {
		role, err := models.ParseRole(entry.Role)
		if err != nil {
			return nil, err
		}
		user, err := s.directory.EnsureUser(ctx, entry.Username)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedEnrollment{userID: user.ID, role: role})
	}

	includedCodes := make([]string, 0, len(input.IncludedSectionCodes))
	for _, code := range input.IncludedSectionCodes {
		included, err := s.sections.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if included.Requested {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSectionAlreadyRequested, code)
		}
		includedCodes = append(includedCodes, included.Code)
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	if len(includedCodes) > 0 {
		if err := s.requests.SetIncludedSections(ctx, request.SectionCode, includedCodes); err != nil {
			return nil, err
		}
	}

	for _, entry := range resolved {
		enrollment := &models.SectionEnrollment{
			RequestID: request.SectionCode,
			UserID:    entry.userID,
			Role:      entry.role,
			Manual:    true,
		}
		if err := s.enrollments.GetOrCreate(ctx, enrollment); err != nil {
			return nil, err
		}
	}

	flagged := append([]string{request.SectionCode}, includedCodes...)
	if err := s.sections.SetRequested(ctx, true, flagged...); err != nil {
		return nil, err
	}

	logger.Info().
		Str("section", request.SectionCode).
		Int64("requester", request.RequesterID).
		Msg("Request submitted")

	request.Section = section
	return request, nil
}

// Get retrieves a request with its section, enrollments and included
// sections attached.
func (s *RequestService) Get(ctx context.Context, sectionCode string) (*models.Request, error) {
	request, err := s.requests.GetBySectionCode(ctx, sectionCode)
	if err != nil {
		return nil, err
	}

	section, err := s.sections.GetByCode(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	request.Section = section

	included, err := s.requests.GetIncludedSections(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	for _, inc := range included {
		request.IncludedSections = append(request.IncludedSections, *inc)
	}

	enrollments, err := s.enrollments.GetByRequest(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	for _, enrollment := range enrollments {
		request.Enrollments = append(request.Enrollments, *enrollment)
	}

	display, err := s.CopyFromCourseDisplay(ctx, request)
	if err != nil {
		logger.Warn().Err(err).Str("section", sectionCode).
			Msg("Failed to render copy source course")
	} else {
		request.CopyFromCourseDisplay = display
	}

	return request, nil
}

// GetAll retrieves every request.
func (s *RequestService) GetAll(ctx context.Context) ([]*models.Request, error) {
	return s.requests.GetAll(ctx)
}

// GetByStatus retrieves requests in a given status.
func (s *RequestService) GetByStatus(ctx context.Context, status string) ([]*models.Request, error) {
	parsed, err := models.ParseStatus(status)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}
	return s.requests.GetByStatus(ctx, parsed)
}

// GetByRequester retrieves the requests a user submitted or was proxied on.
func (s *RequestService) GetByRequester(ctx context.Context, userID int64) ([]*models.Request, error) {
	return s.requests.GetByRequester(ctx, userID)
}

// Approve moves a submitted request into the provisioning queue.
func (s *RequestService) Approve(ctx context.Context, sectionCode string) (*models.Request, error) {
	return s.applyEvent(ctx, sectionCode, models.EventApprove)
}

// Cancel withdraws a request. The status changes; the row is kept.
func (s *RequestService) Cancel(ctx context.Context, sectionCode string) (*models.Request, error) {
	return s.applyEvent(ctx, sectionCode, models.EventCancel)
}

// Lock freezes a request against provisioning.
func (s *RequestService) Lock(ctx context.Context, sectionCode string) (*models.Request, error) {
	return s.applyEvent(ctx, sectionCode, models.EventLock)
}

func (s *RequestService) applyEvent(ctx context.Context, sectionCode string, event models.Event) (*models.Request, error) {
	request, err := s.requests.GetBySectionCode(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Transition(ctx, request, event); err != nil {
		return nil, err
	}
	return request, nil
}

// AdminUpdate edits a request from the admin detail view. Only statuses in
// the admin-editable subset are accepted; In Process and Error belong to
// the pipeline.
func (s *RequestService) AdminUpdate(ctx context.Context, sectionCode string, input AdminUpdateInput) (*models.Request, error) {
	request, err := s.requests.GetBySectionCode(ctx, sectionCode)
	if err != nil {
		return nil, err
	}

	status, err := models.ParseStatus(input.Status)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}
	if !status.AdminEditable() {
		return nil, fmt.Errorf("%w: %s is not admin editable", apperrors.ErrStatusNotEditable, status)
	}

	request.TitleOverride = input.TitleOverride
	request.CopyFromCourse = input.CopyFromCourse
	request.Reserves = input.Reserves
	request.LMSOnline = input.LMSOnline
	request.ExcludeAnnouncements = input.ExcludeAnnouncements
	request.AdditionalInstructions = input.AdditionalInstructions
	request.AdminInstructions = input.AdminInstructions
	request.Status = status

	if err := s.requests.Update(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// CanvasSite returns the id and name of the already-provisioned site for a
// request's section, or nil when none exists.
func (s *RequestService) CanvasSite(ctx context.Context, sectionCode string) (*canvas.Course, error) {
	section, err := s.sections.GetByCode(ctx, sectionCode)
	if err != nil {
		return nil, err
	}

	course, err := s.canvas.GetCourseBySISID(ctx, section.SISCourseID(s.sisPrefix))
	if err != nil {
		if errors.Is(err, canvas.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return course, nil
}

// CopyFromCourseDisplay renders the source course of a copy request for
// display, e.g. "Intro Biology (12345)".
func (s *RequestService) CopyFromCourseDisplay(ctx context.Context, request *models.Request) (string, error) {
	if request.CopyFromCourse == nil {
		return "", nil
	}
	course, err := s.canvas.GetCourse(ctx, *request.CopyFromCourse)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%d)", course.Name, course.ID), nil
}
