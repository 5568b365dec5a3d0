package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/dberrors"
)

// SchoolRepository handles database operations for schools
type SchoolRepository struct {
	db *pgxpool.Pool
}

// NewSchoolRepository creates a new school repository
func NewSchoolRepository(db *pgxpool.Pool) *SchoolRepository {
	return &SchoolRepository{
		db: db,
	}
}

// GetByCode retrieves a school by code
func (r *SchoolRepository) GetByCode(ctx context.Context, code string) (*models.School, error) {
	query := `
		SELECT code, name, visible, canvas_sub_account_id
		FROM schools
		WHERE code = $1
	`

	var school models.School
	err := r.db.QueryRow(ctx, query, code).Scan(
		&school.Code,
		&school.Name,
		&school.Visible,
		&school.CanvasSubAccountID,
	)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("error retrieving school %s: %w", code, err)
	}
	return &school, nil
}

// GetAll retrieves all schools ordered by code
func (r *SchoolRepository) GetAll(ctx context.Context) ([]*models.School, error) {
	query := `
		SELECT code, name, visible, canvas_sub_account_id
		FROM schools
		ORDER BY code
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schools []*models.School
	for rows.Next() {
		var school models.School
		if err := rows.Scan(
			&school.Code,
			&school.Name,
			&school.Visible,
			&school.CanvasSubAccountID,
		); err != nil {
			return nil, fmt.Errorf("error scanning school: %w", err)
		}
		schools = append(schools, &school)
	}
	return schools, rows.Err()
}

// Upsert inserts a school or refreshes its name
func (r *SchoolRepository) Upsert(ctx context.Context, school *models.School) error {
	query := `
		INSERT INTO schools (code, name, visible)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
	`

	_, err := r.db.Exec(ctx, query, school.Code, school.Name, school.Visible)
	if err != nil {
		return fmt.Errorf("error upserting school %s: %w", school.Code, err)
	}
	return nil
}

// SetSubAccountID stores the resolved LMS sub-account for a school
func (r *SchoolRepository) SetSubAccountID(ctx context.Context, code string, subAccountID int64) error {
	query := `UPDATE schools SET canvas_sub_account_id = $2 WHERE code = $1`

	tag, err := r.db.Exec(ctx, query, code, subAccountID)
	if err != nil {
		return fmt.Errorf("error setting sub-account for school %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSchoolNotFound
	}
	return nil
}

// SetVisibility toggles a school and cascades the flag to its subjects
func (r *SchoolRepository) SetVisibility(ctx context.Context, code string, visible bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting visibility transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE schools SET visible = $2 WHERE code = $1`, code, visible)
	if err != nil {
		return fmt.Errorf("error updating school %s visibility: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSchoolNotFound
	}

	_, err = tx.Exec(ctx, `UPDATE subjects SET visible = $2 WHERE school_code = $1`, code, visible)
	if err != nil {
		return fmt.Errorf("error cascading visibility to subjects of %s: %w", code, err)
	}

	return tx.Commit(ctx)
}
