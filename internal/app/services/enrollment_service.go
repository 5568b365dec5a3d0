package services

import (
	"context"

	"github.com/oklib/courseflow/internal/app/models"
)

type enrollmentStore interface {
	GetOrCreate(ctx context.Context, enrollment *models.SectionEnrollment) error
	GetManualByRequest(ctx context.Context, requestID string) ([]*models.SectionEnrollment, error)
	GetAutoAddsFor(ctx context.Context, schoolCode, subjectCode string) ([]*models.AutoAdd, error)
}

// EnrollmentService computes the full enrollment set for a request.
type EnrollmentService struct {
	enrollments enrollmentStore
}

// NewEnrollmentService creates a new enrollment service.
func NewEnrollmentService(enrollments enrollmentStore) *EnrollmentService {
	return &EnrollmentService{enrollments: enrollments}
}

// Compute combines three sources in order: the section's current
// instructors, the request's manually specified enrollments, and every
// auto-add policy matching the section's school and subject. Instructor
// rows are recorded on the request, reusing an existing (user, role) row
// rather than duplicating it. Duplicates across sources are not collapsed;
// the LMS enrollment call is idempotent.
func (s *EnrollmentService) Compute(ctx context.Context, request *models.Request, section *models.Section) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment

	for _, instructor := range section.AllInstructors() {
		enrollment := &models.SectionEnrollment{
			RequestID: request.SectionCode,
			UserID:    instructor.ID,
			Role:      models.RoleInstructor,
		}
		if err := s.enrollments.GetOrCreate(ctx, enrollment); err != nil {
			return nil, err
		}
		assignments = append(assignments, models.RoleAssignment{
			User: instructor,
			Role: models.RoleInstructor,
		})
	}

	manual, err := s.enrollments.GetManualByRequest(ctx, request.SectionCode)
	if err != nil {
		return nil, err
	}
	for _, enrollment := range manual {
		assignments = append(assignments, models.RoleAssignment{
			User: *enrollment.User,
			Role: enrollment.Role,
		})
	}

	autoAdds, err := s.enrollments.GetAutoAddsFor(ctx, section.SchoolCode, section.SubjectCode)
	if err != nil {
		return nil, err
	}
	for _, autoAdd := range autoAdds {
		assignments = append(assignments, models.RoleAssignment{
			User: *autoAdd.User,
			Role: autoAdd.Role,
		})
	}

	return assignments, nil
}
