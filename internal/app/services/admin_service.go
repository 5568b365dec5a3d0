package services

import (
	"context"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/app/repositories"
	"github.com/oklib/courseflow/internal/pkg/logger"
)

// AdminService handles staff-only maintenance: auto-add policies and school
// configuration.
type AdminService struct {
	enrollments *repositories.EnrollmentRepository
	schools     *repositories.SchoolRepository
	subjects    *repositories.SubjectRepository
	directory   *DirectoryService
}

// NewAdminService creates a new admin service.
func NewAdminService(
	enrollments *repositories.EnrollmentRepository,
	schools *repositories.SchoolRepository,
	subjects *repositories.SubjectRepository,
	directory *DirectoryService,
) *AdminService {
	return &AdminService{
		enrollments: enrollments,
		schools:     schools,
		subjects:    subjects,
		directory:   directory,
	}
}

// CreateAutoAdd records a standing enrollment policy for a school and
// subject. The user is pulled from the directory if not yet known locally.
func (s *AdminService) CreateAutoAdd(ctx context.Context, schoolCode, subjectCode, username, role string) (*models.AutoAdd, error) {
	parsedRole, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}

	school, err := s.schools.GetByCode(ctx, schoolCode)
	if err != nil {
		return nil, err
	}
	subject, err := s.subjects.GetByCode(ctx, subjectCode)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.EnsureUser(ctx, username)
	if err != nil {
		return nil, err
	}

	autoAdd := &models.AutoAdd{
		SchoolCode:  school.Code,
		SubjectCode: subject.Code,
		UserID:      user.ID,
		Role:        parsedRole,
	}
	if err := s.enrollments.CreateAutoAdd(ctx, autoAdd); err != nil {
		return nil, err
	}

	autoAdd.User = user
	autoAdd.School = school
	autoAdd.Subject = subject

	logger.Info().
		Str("school", school.Code).
		Str("subject", subject.Code).
		Str("username", username).
		Str("role", string(parsedRole)).
		Msg("Auto-add policy created")

	return autoAdd, nil
}

// DeleteAutoAdd removes a standing enrollment policy.
func (s *AdminService) DeleteAutoAdd(ctx context.Context, id int64) error {
	return s.enrollments.DeleteAutoAdd(ctx, id)
}

// GetAutoAdds lists every standing enrollment policy.
func (s *AdminService) GetAutoAdds(ctx context.Context) ([]*models.AutoAdd, error) {
	return s.enrollments.GetAutoAdds(ctx)
}

// GetSchools lists every school.
func (s *AdminService) GetSchools(ctx context.Context) ([]*models.School, error) {
	return s.schools.GetAll(ctx)
}

// SetSchoolVisibility shows or hides a school on the request form. The
// change cascades to the school's subjects.
func (s *AdminService) SetSchoolVisibility(ctx context.Context, code string, visible bool) (*models.School, error) {
	if _, err := s.schools.GetByCode(ctx, code); err != nil {
		return nil, err
	}
	if err := s.schools.SetVisibility(ctx, code, visible); err != nil {
		return nil, err
	}
	return s.schools.GetByCode(ctx, code)
}

// SetSchoolSubAccount pins a school to an LMS sub-account.
func (s *AdminService) SetSchoolSubAccount(ctx context.Context, code string, subAccountID int64) (*models.School, error) {
	if _, err := s.schools.GetByCode(ctx, code); err != nil {
		return nil, err
	}
	if err := s.schools.SetSubAccountID(ctx, code, subAccountID); err != nil {
		return nil, err
	}
	return s.schools.GetByCode(ctx, code)
}
