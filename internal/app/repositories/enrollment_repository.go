package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/dberrors"
)

// EnrollmentRepository handles database operations for section enrollments
// and auto-add policies
type EnrollmentRepository struct {
	db *pgxpool.Pool
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{
		db: db,
	}
}

// GetOrCreate returns the existing (request, user, role) enrollment row or
// inserts a new one. Instructor-derived rows reuse the existing record
// instead of duplicating it.
func (r *EnrollmentRepository) GetOrCreate(ctx context.Context, enrollment *models.SectionEnrollment) error {
	query := `
		INSERT INTO section_enrollments (request_id, user_id, role, manual)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id, user_id, role) DO UPDATE SET role = EXCLUDED.role
		RETURNING id, manual, created_at
	`

	err := r.db.QueryRow(ctx, query,
		enrollment.RequestID,
		enrollment.UserID,
		enrollment.Role,
		enrollment.Manual,
	).Scan(&enrollment.ID, &enrollment.Manual, &enrollment.CreatedAt)
	if err != nil {
		return fmt.Errorf("error upserting enrollment for request %s: %w", enrollment.RequestID, err)
	}
	return nil
}

// GetByRequest retrieves a request's enrollment rows with users attached
func (r *EnrollmentRepository) GetByRequest(ctx context.Context, requestID string) ([]*models.SectionEnrollment, error) {
	query := `
		SELECT e.id, e.request_id, e.user_id, e.role, e.manual, e.created_at,
		       u.id, u.username, u.first_name, u.last_name, u.email, u.sis_id, u.canvas_id
		FROM section_enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE e.request_id = $1
		ORDER BY e.id
	`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []*models.SectionEnrollment
	for rows.Next() {
		var enrollment models.SectionEnrollment
		var user models.User
		if err := rows.Scan(
			&enrollment.ID, &enrollment.RequestID, &enrollment.UserID,
			&enrollment.Role, &enrollment.Manual, &enrollment.CreatedAt,
			&user.ID, &user.Username, &user.FirstName, &user.LastName,
			&user.Email, &user.SISID, &user.CanvasID,
		); err != nil {
			return nil, fmt.Errorf("error scanning enrollment: %w", err)
		}
		enrollment.User = &user
		enrollments = append(enrollments, &enrollment)
	}
	return enrollments, rows.Err()
}

// GetManualByRequest retrieves only the manually specified enrollments
func (r *EnrollmentRepository) GetManualByRequest(ctx context.Context, requestID string) ([]*models.SectionEnrollment, error) {
	enrollments, err := r.GetByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	manual := enrollments[:0]
	for _, enrollment := range enrollments {
		if enrollment.Manual {
			manual = append(manual, enrollment)
		}
	}
	return manual, nil
}

// CreateAutoAdd inserts a standing enrollment policy
func (r *EnrollmentRepository) CreateAutoAdd(ctx context.Context, autoAdd *models.AutoAdd) error {
	query := `
		INSERT INTO auto_adds (school_code, subject_code, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		autoAdd.SchoolCode,
		autoAdd.SubjectCode,
		autoAdd.UserID,
		autoAdd.Role,
	).Scan(&autoAdd.ID, &autoAdd.CreatedAt, &autoAdd.UpdatedAt)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrAutoAddAlreadyAdded
		}
		return fmt.Errorf("error creating auto-add: %w", err)
	}
	return nil
}

// DeleteAutoAdd removes a standing enrollment policy
func (r *EnrollmentRepository) DeleteAutoAdd(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM auto_adds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting auto-add %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAutoAddNotFound
	}
	return nil
}

const autoAddQuery = `
	SELECT a.id, a.school_code, a.subject_code, a.user_id, a.role,
	       a.created_at, a.updated_at,
	       u.id, u.username, u.first_name, u.last_name, u.email, u.sis_id, u.canvas_id
	FROM auto_adds a
	JOIN users u ON u.id = a.user_id`

// GetAutoAdds retrieves every standing policy
func (r *EnrollmentRepository) GetAutoAdds(ctx context.Context) ([]*models.AutoAdd, error) {
	return r.queryAutoAdds(ctx, autoAddQuery+` ORDER BY a.school_code, a.subject_code, a.id`)
}

// GetAutoAddsFor retrieves the policies matching a (school, subject) pair
func (r *EnrollmentRepository) GetAutoAddsFor(ctx context.Context, schoolCode, subjectCode string) ([]*models.AutoAdd, error) {
	query := autoAddQuery + ` WHERE a.school_code = $1 AND a.subject_code = $2 ORDER BY a.id`
	return r.queryAutoAdds(ctx, query, schoolCode, subjectCode)
}

func (r *EnrollmentRepository) queryAutoAdds(ctx context.Context, query string, args ...any) ([]*models.AutoAdd, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var autoAdds []*models.AutoAdd
	for rows.Next() {
		var autoAdd models.AutoAdd
		var user models.User
		if err := rows.Scan(
			&autoAdd.ID, &autoAdd.SchoolCode, &autoAdd.SubjectCode,
			&autoAdd.UserID, &autoAdd.Role, &autoAdd.CreatedAt, &autoAdd.UpdatedAt,
			&user.ID, &user.Username, &user.FirstName, &user.LastName,
			&user.Email, &user.SISID, &user.CanvasID,
		); err != nil {
			return nil, fmt.Errorf("error scanning auto-add: %w", err)
		}
		autoAdd.User = &user
		autoAdds = append(autoAdds, &autoAdd)
	}
	return autoAdds, rows.Err()
}
