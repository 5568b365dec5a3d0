package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/config"
	"github.com/oklib/courseflow/internal/pkg/logger"
)

type provisionRequestStore interface {
	GetBySectionCode(ctx context.Context, sectionCode string) (*models.Request, error)
	GetByStatus(ctx context.Context, status models.Status) ([]*models.Request, error)
	GetIncludedSections(ctx context.Context, sectionCode string) ([]*models.Section, error)
	UpdateProcessNotes(ctx context.Context, sectionCode, notes string) error
}

type provisionSectionStore interface {
	GetByCode(ctx context.Context, code string) (*models.Section, error)
}

type enrollmentComputer interface {
	Compute(ctx context.Context, request *models.Request, section *models.Section) ([]models.RoleAssignment, error)
}

type identityResolver interface {
	LookupOrProvision(ctx context.Context, username string) (int64, error)
}

type migrationRunner interface {
	Await(ctx context.Context, courseID, sourceCourseID int64) (bool, error)
}

// ProvisionService drives the site-provisioning pipeline for approved
// requests.
type ProvisionService struct {
	requests    provisionRequestStore
	sections    provisionSectionStore
	enrollments enrollmentComputer
	directory   identityResolver
	migrations  migrationRunner
	lifecycle   *Lifecycle
	canvas      canvas.API
	cfg         config.ProvisionConfig
	accountID   int64
	now         func() time.Time
}

// NewProvisionService creates a new provision service. accountID is the
// root LMS account used for enrollment-term resolution.
func NewProvisionService(
	requests provisionRequestStore,
	sections provisionSectionStore,
	enrollments enrollmentComputer,
	directory identityResolver,
	migrations migrationRunner,
	lifecycle *Lifecycle,
	api canvas.API,
	cfg config.ProvisionConfig,
	accountID int64,
) *ProvisionService {
	return &ProvisionService{
		requests:    requests,
		sections:    sections,
		enrollments: enrollments,
		directory:   directory,
		migrations:  migrations,
		lifecycle:   lifecycle,
		canvas:      api,
		cfg:         cfg,
		accountID:   accountID,
		now:         time.Now,
	}
}

// Provision runs the full pipeline for one request. The request moves to
// In Process before any external call; any failure after that point is
// recorded into the process notes with a timestamp and the request lands
// in Error. Side effects already applied are not rolled back.
func (s *ProvisionService) Provision(ctx context.Context, sectionCode string) (*canvas.Course, error) {
	request, err := s.requests.GetBySectionCode(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	section, err := s.sections.GetByCode(ctx, sectionCode)
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("provision").With().
		Str("run_id", uuid.NewString()).
		Str("section", sectionCode).
		Logger()

	if err := s.lifecycle.Transition(ctx, request, models.EventStart); err != nil {
		return nil, err
	}

	course, created, err := s.provision(ctx, log, request, section)
	if err != nil {
		s.recordFailure(ctx, log, request, err)
		return nil, err
	}

	if err := s.lifecycle.Transition(ctx, request, models.EventComplete); err != nil {
		s.recordFailure(ctx, log, request, err)
		return nil, err
	}

	action := "Updated"
	if created {
		action = "Created"
	}
	log.Info().
		Str("course", course.Name).
		Int64("course_id", course.ID).
		Bool("created", created).
		Msgf("%s course site", action)
	return course, nil
}

func (s *ProvisionService) recordFailure(ctx context.Context, log zerolog.Logger, request *models.Request, cause error) {
	log.Error().Err(cause).Msg("Provisioning failed")

	request.RecordProcessNote(s.now(), cause.Error())
	if err := s.requests.UpdateProcessNotes(ctx, request.SectionCode, request.ProcessNotes); err != nil {
		log.Error().Err(err).Msg("Failed to record process notes")
	}
	if err := s.lifecycle.Transition(ctx, request, models.EventFail); err != nil {
		log.Error().Err(err).Msg("Failed to transition request to error")
	}
}

func (s *ProvisionService) provision(ctx context.Context, log zerolog.Logger, request *models.Request, section *models.Section) (*canvas.Course, bool, error) {
	payload, err := s.coursePayload(ctx, request, section)
	if err != nil {
		return nil, false, err
	}

	subAccountID, err := s.subAccountID(request, section)
	if err != nil {
		return nil, false, err
	}

	course, created, err := s.createOrUpdateCourse(ctx, payload, subAccountID)
	if err != nil {
		return nil, false, err
	}

	courseSection, err := s.ensureCourseSection(ctx, course, payload.Name, payload.SISCourseID)
	if err != nil {
		return nil, false, err
	}

	if err := s.createRelatedSections(ctx, request, course); err != nil {
		return nil, false, err
	}

	assignments, err := s.enrollments.Compute(ctx, request, section)
	if err != nil {
		return nil, false, err
	}
	if err := s.applyEnrollments(ctx, course, courseSection, assignments); err != nil {
		return nil, false, err
	}

	if request.Reserves {
		if err := s.canvas.SetTabVisibility(ctx, course.ID, s.cfg.ReservesTabID, true); err != nil {
			return nil, false, err
		}
	}

	if request.CopyFromCourse != nil {
		if err := s.migrate(ctx, log, request, course); err != nil {
			return nil, false, err
		}
	}

	return course, created, nil
}

func (s *ProvisionService) coursePayload(ctx context.Context, request *models.Request, section *models.Section) (canvas.CoursePayload, error) {
	sisCourseID := section.SISCourseID(s.cfg.SISPrefix)
	payload := canvas.CoursePayload{
		Name:           section.CanvasName(request.TitleOverride, false),
		SISCourseID:    sisCourseID,
		CourseCode:     sisCourseID,
		StorageQuotaMB: s.cfg.StorageQuotaMB,
	}

	termID, err := s.enrollmentTermID(ctx, section.Term)
	if err != nil {
		return canvas.CoursePayload{}, err
	}
	payload.TermID = termID
	return payload, nil
}

// enrollmentTermID resolves the numeric term against enrollment term names
// containing that number. First match wins.
func (s *ProvisionService) enrollmentTermID(ctx context.Context, term int) (*int64, error) {
	terms, err := s.canvas.ListEnrollmentTerms(ctx, s.accountID)
	if err != nil {
		return nil, err
	}
	name := strconv.Itoa(term)
	for _, enrollmentTerm := range terms {
		if strings.Contains(enrollmentTerm.Name, name) {
			id := enrollmentTerm.ID
			return &id, nil
		}
	}
	return nil, nil
}

func (s *ProvisionService) subAccountID(request *models.Request, section *models.Section) (int64, error) {
	if request.LMSOnline && section.SchoolCode == s.cfg.OnlineSchoolCode {
		return s.cfg.OnlineSubAccountID, nil
	}
	if section.School == nil || section.School.CanvasSubAccountID == nil {
		return 0, fmt.Errorf("school %s has no LMS sub-account", section.SchoolCode)
	}
	return *section.School.CanvasSubAccountID, nil
}

// createOrUpdateCourse attempts a create under the sub-account and falls
// back to updating an existing site by its SIS course id.
func (s *ProvisionService) createOrUpdateCourse(ctx context.Context, payload canvas.CoursePayload, subAccountID int64) (*canvas.Course, bool, error) {
	course, err := s.canvas.CreateCourse(ctx, subAccountID, payload)
	if err == nil {
		return course, true, nil
	}

	logger.Warn().Err(err).Str("sis_course_id", payload.SISCourseID).
		Msg("Course creation failed, falling back to update")

	course, err = s.canvas.UpdateCourse(ctx, payload.SISCourseID, payload)
	if err != nil {
		return nil, false, fmt.Errorf("updating course %s: %w", payload.SISCourseID, err)
	}
	return course, false, nil
}

// ensureCourseSection guarantees a course-section record carrying the
// site's canonical name exists and returns it. Enrollments target this
// section, not the site's default one.
func (s *ProvisionService) ensureCourseSection(ctx context.Context, course *canvas.Course, name, sisCourseID string) (*canvas.Section, error) {
	sections, err := s.canvas.ListSections(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		if sections[i].Name == name {
			return &sections[i], nil
		}
	}
	return s.canvas.CreateSection(ctx, course.ID, name, sisCourseID)
}

func (s *ProvisionService) createRelatedSections(ctx context.Context, request *models.Request, course *canvas.Course) error {
	included, err := s.requests.GetIncludedSections(ctx, request.SectionCode)
	if err != nil {
		return err
	}
	if len(included) == 0 {
		return nil
	}

	existing, err := s.canvas.ListSections(ctx, course.ID)
	if err != nil {
		return err
	}
	names := make(map[string]struct{}, len(existing))
	for _, section := range existing {
		names[section.Name] = struct{}{}
	}

	for _, section := range included {
		name := section.CanvasName(request.TitleOverride, true)
		if _, ok := names[name]; ok {
			continue
		}
		if _, err := s.canvas.CreateSection(ctx, course.ID, name, section.SISCourseID(s.cfg.SISPrefix)); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProvisionService) applyEnrollments(ctx context.Context, course *canvas.Course, courseSection *canvas.Section, assignments []models.RoleAssignment) error {
	for _, assignment := range assignments {
		canvasID, err := s.directory.LookupOrProvision(ctx, assignment.User.Username)
		if err != nil {
			return err
		}

		opts := canvas.EnrollmentOptions{
			State:     "active",
			SectionID: courseSection.ID,
		}
		if assignment.Role.UsesLibrarianRole() {
			opts.RoleID = s.cfg.LibrarianRoleID
		}
		if err := s.canvas.Enroll(ctx, course.ID, canvasID, assignment.Role.CanvasType(), opts); err != nil {
			return fmt.Errorf("enrolling %s as %s: %w", assignment.User.Username, assignment.Role, err)
		}
	}
	return nil
}

// migrate copies content from the source course and, on completion, strips
// stale artifacts: virtual-meeting calendar events always, announcements
// when the request excludes them. A migration that fails or times out is
// logged and skipped without failing the pipeline.
func (s *ProvisionService) migrate(ctx context.Context, log zerolog.Logger, request *models.Request, course *canvas.Course) error {
	completed, err := s.migrations.Await(ctx, course.ID, *request.CopyFromCourse)
	if err != nil {
		return err
	}
	if !completed {
		log.Warn().Int64("source_course_id", *request.CopyFromCourse).
			Msg("Content migration unsuccessful, skipping cleanup")
		return nil
	}

	if request.ExcludeAnnouncements {
		if err := s.deleteAnnouncements(ctx, log, course.ID); err != nil {
			return err
		}
	}
	return s.deleteZoomEvents(ctx, log, course.ID)
}

func (s *ProvisionService) deleteAnnouncements(ctx context.Context, log zerolog.Logger, courseID int64) error {
	announcements, err := s.canvas.ListAnnouncements(ctx, courseID)
	if err != nil {
		return err
	}
	for _, announcement := range announcements {
		if err := s.canvas.DeleteAnnouncement(ctx, courseID, announcement.ID); err != nil {
			return err
		}
		log.Info().Str("announcement", announcement.Title).Msg("Deleted announcement")
	}
	return nil
}

func (s *ProvisionService) deleteZoomEvents(ctx context.Context, log zerolog.Logger, courseID int64) error {
	events, err := s.canvas.ListCalendarEvents(ctx, courseID)
	if err != nil {
		return err
	}
	for _, event := range events {
		if !canvas.IsZoomEvent(event) {
			continue
		}
		if err := s.canvas.DeleteCalendarEvent(ctx, event.ID, "Content migration"); err != nil {
			return err
		}
		log.Info().Str("event", event.Title).Msg("Deleted stale meeting event")
	}
	return nil
}

// ProvisionApproved runs the pipeline for every approved request, strictly
// sequentially. One request's failure does not halt the rest.
func (s *ProvisionService) ProvisionApproved(ctx context.Context) (provisioned, failed int, err error) {
	approved, err := s.requests.GetByStatus(ctx, models.StatusApproved)
	if err != nil {
		return 0, 0, err
	}

	for _, request := range approved {
		if _, err := s.Provision(ctx, request.SectionCode); err != nil {
			failed++
			continue
		}
		provisioned++
	}

	logger.Info().Int("provisioned", provisioned).Int("failed", failed).
		Msg("Batch provisioning finished")
	return provisioned, failed, nil
}
