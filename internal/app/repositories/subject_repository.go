package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/dberrors"
)

// SubjectRepository handles database operations for subjects
type SubjectRepository struct {
	db *pgxpool.Pool
}

// NewSubjectRepository creates a new subject repository
func NewSubjectRepository(db *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{
		db: db,
	}
}

// GetByCode retrieves a subject by code
func (r *SubjectRepository) GetByCode(ctx context.Context, code string) (*models.Subject, error) {
	query := `
		SELECT code, name, school_code, visible
		FROM subjects
		WHERE code = $1
	`

	var subject models.Subject
	err := r.db.QueryRow(ctx, query, code).Scan(
		&subject.Code,
		&subject.Name,
		&subject.SchoolCode,
		&subject.Visible,
	)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("error retrieving subject %s: %w", code, err)
	}
	return &subject, nil
}

// GetVisible retrieves visible subjects ordered by code, for the request form
func (r *SubjectRepository) GetVisible(ctx context.Context) ([]*models.Subject, error) {
	query := `
		SELECT code, name, school_code, visible
		FROM subjects
		WHERE visible
		ORDER BY code
	`
	return r.querySubjects(ctx, query)
}

// GetBySchool retrieves a school's subjects
func (r *SubjectRepository) GetBySchool(ctx context.Context, schoolCode string) ([]*models.Subject, error) {
	query := `
		SELECT code, name, school_code, visible
		FROM subjects
		WHERE school_code = $1
		ORDER BY code
	`
	return r.querySubjects(ctx, query, schoolCode)
}

func (r *SubjectRepository) querySubjects(ctx context.Context, query string, args ...any) ([]*models.Subject, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []*models.Subject
	for rows.Next() {
		var subject models.Subject
		if err := rows.Scan(
			&subject.Code,
			&subject.Name,
			&subject.SchoolCode,
			&subject.Visible,
		); err != nil {
			return nil, fmt.Errorf("error scanning subject: %w", err)
		}
		subjects = append(subjects, &subject)
	}
	return subjects, rows.Err()
}

// Upsert inserts a subject or refreshes its name and school
func (r *SubjectRepository) Upsert(ctx context.Context, subject *models.Subject) error {
	query := `
		INSERT INTO subjects (code, name, school_code, visible)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			school_code = EXCLUDED.school_code
	`

	_, err := r.db.Exec(ctx, query, subject.Code, subject.Name, subject.SchoolCode, subject.Visible)
	if err != nil {
		return fmt.Errorf("error upserting subject %s: %w", subject.Code, err)
	}
	return nil
}
