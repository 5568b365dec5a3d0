package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/dberrors"
)

// Section relation kinds stored in section_relations.
const (
	RelationAlsoOfferedAs = "also_offered_as"
	RelationCourseSection = "course_section"
)

// SectionRepository handles database operations for sections
type SectionRepository struct {
	db *pgxpool.Pool
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(db *pgxpool.Pool) *SectionRepository {
	return &SectionRepository{
		db: db,
	}
}

const sectionColumns = `
	s.code, s.section_id, s.school_code, s.subject_code, s.course_number,
	s.section_number, s.term, s.title, s.schedule_type_code,
	s.primary_instructor_id, s.primary_section_code, s.xlist_family,
	s.requested, s.created_at, s.updated_at`

func scanSection(row interface{ Scan(...any) error }) (*models.Section, error) {
	var section models.Section
	err := row.Scan(
		&section.Code,
		&section.SectionID,
		&section.SchoolCode,
		&section.SubjectCode,
		&section.CourseNumber,
		&section.SectionNumber,
		&section.Term,
		&section.Title,
		&section.ScheduleTypeCode,
		&section.PrimaryInstructorID,
		&section.PrimarySectionCode,
		&section.XlistFamily,
		&section.Requested,
		&section.CreatedAt,
		&section.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// GetByCode retrieves a section with its school, subject and instructors
func (r *SectionRepository) GetByCode(ctx context.Context, code string) (*models.Section, error) {
	query := `SELECT` + sectionColumns + ` FROM sections s WHERE s.code = $1`

	section, err := scanSection(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrSectionNotFound
		}
		return nil, fmt.Errorf("error retrieving section %s: %w", code, err)
	}

	if err := r.loadAssociations(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

func (r *SectionRepository) loadAssociations(ctx context.Context, section *models.Section) error {
	school, err := r.getSchool(ctx, section.SchoolCode)
	if err != nil {
		return err
	}
	section.School = school

	subject, err := r.getSubject(ctx, section.SubjectCode)
	if err != nil {
		return err
	}
	section.Subject = subject

	instructors, err := r.GetInstructors(ctx, section.Code)
	if err != nil {
		return err
	}
	section.Instructors = instructors

	if section.PrimaryInstructorID != nil {
		primary, err := r.getUser(ctx, *section.PrimaryInstructorID)
		if err != nil {
			return err
		}
		section.PrimaryInstructor = primary
	}
	return nil
}

func (r *SectionRepository) getSchool(ctx context.Context, code string) (*models.School, error) {
	var school models.School
	err := r.db.QueryRow(ctx,
		`SELECT code, name, visible, canvas_sub_account_id FROM schools WHERE code = $1`, code,
	).Scan(&school.Code, &school.Name, &school.Visible, &school.CanvasSubAccountID)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("error retrieving school %s: %w", code, err)
	}
	return &school, nil
}

func (r *SectionRepository) getSubject(ctx context.Context, code string) (*models.Subject, error) {
	var subject models.Subject
	err := r.db.QueryRow(ctx,
		`SELECT code, name, school_code, visible FROM subjects WHERE code = $1`, code,
	).Scan(&subject.Code, &subject.Name, &subject.SchoolCode, &subject.Visible)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("error retrieving subject %s: %w", code, err)
	}
	return &subject, nil
}

func (r *SectionRepository) getUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, first_name, last_name, email, sis_id, canvas_id FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email, &user.SISID, &user.CanvasID)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user %d: %w", id, err)
	}
	return &user, nil
}

// GetByTerm retrieves sections for a term, optionally only unrequested ones
func (r *SectionRepository) GetByTerm(ctx context.Context, term int, onlyUnrequested bool) ([]*models.Section, error) {
	query := `SELECT` + sectionColumns + ` FROM sections s WHERE s.term = $1`
	if onlyUnrequested {
		query += ` AND NOT s.requested`
	}
	query += ` ORDER BY s.code`

	rows, err := r.db.Query(ctx, query, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning section: %w", err)
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

// Search retrieves a term's sections matching a query against the section
// code, subject or title
func (r *SectionRepository) Search(ctx context.Context, term int, search string, onlyUnrequested bool) ([]*models.Section, error) {
	query := `SELECT` + sectionColumns + `
		FROM sections s
		WHERE s.term = $1
		  AND (s.code ILIKE $2 OR s.subject_code ILIKE $2 OR s.title ILIKE $2)`
	if onlyUnrequested {
		query += ` AND NOT s.requested`
	}
	query += ` ORDER BY s.code`

	rows, err := r.db.Query(ctx, query, term, "%"+search+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning section: %w", err)
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

// Upsert inserts a section or refreshes its registrar fields
func (r *SectionRepository) Upsert(ctx context.Context, section *models.Section) error {
	query := `
		INSERT INTO sections (
			code, section_id, school_code, subject_code, course_number,
			section_number, term, title, schedule_type_code,
			primary_instructor_id, primary_section_code, xlist_family
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO UPDATE SET
			school_code = EXCLUDED.school_code,
			subject_code = EXCLUDED.subject_code,
			course_number = EXCLUDED.course_number,
			section_number = EXCLUDED.section_number,
			title = EXCLUDED.title,
			schedule_type_code = EXCLUDED.schedule_type_code,
			primary_instructor_id = EXCLUDED.primary_instructor_id,
			primary_section_code = EXCLUDED.primary_section_code,
			xlist_family = EXCLUDED.xlist_family,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		section.Code,
		section.SectionID,
		section.SchoolCode,
		section.SubjectCode,
		section.CourseNumber,
		section.SectionNumber,
		section.Term,
		section.Title,
		section.ScheduleTypeCode,
		section.PrimaryInstructorID,
		section.PrimarySectionCode,
		section.XlistFamily,
	).Scan(&section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting section %s: %w", section.Code, err)
	}
	return nil
}

// Delete removes a section, used when the registrar reports it canceled
func (r *SectionRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sections WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("error deleting section %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSectionNotFound
	}
	return nil
}

// SetRequested flags sections as having a provisioning request
func (r *SectionRepository) SetRequested(ctx context.Context, requested bool, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	query := `UPDATE sections SET requested = $1, updated_at = CURRENT_TIMESTAMP WHERE code = ANY($2)`

	_, err := r.db.Exec(ctx, query, requested, codes)
	if err != nil {
		return fmt.Errorf("error flagging sections as requested: %w", err)
	}
	return nil
}

// GetInstructors retrieves the additional instructors of a section
func (r *SectionRepository) GetInstructors(ctx context.Context, code string) ([]models.User, error) {
	query := `
		SELECT u.id, u.username, u.first_name, u.last_name, u.email, u.sis_id, u.canvas_id
		FROM section_instructors si
		JOIN users u ON u.id = si.user_id
		WHERE si.section_code = $1
		ORDER BY u.last_name, u.first_name
	`

	rows, err := r.db.Query(ctx, query, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instructors []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.FirstName, &user.LastName,
			&user.Email, &user.SISID, &user.CanvasID,
		); err != nil {
			return nil, fmt.Errorf("error scanning instructor: %w", err)
		}
		instructors = append(instructors, user)
	}
	return instructors, rows.Err()
}

// SetInstructors replaces a section's instructor set
func (r *SectionRepository) SetInstructors(ctx context.Context, code string, userIDs []int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting instructor transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM section_instructors WHERE section_code = $1`, code); err != nil {
		return fmt.Errorf("error clearing instructors for %s: %w", code, err)
	}

	for _, userID := range userIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO section_instructors (section_code, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			code, userID)
		if err != nil {
			return fmt.Errorf("error adding instructor %d to %s: %w", userID, code, err)
		}
	}

	return tx.Commit(ctx)
}

// AddRelation records a symmetric section association
func (r *SectionRepository) AddRelation(ctx context.Context, code, relatedCode, relation string) error {
	query := `
		INSERT INTO section_relations (section_code, related_code, relation)
		VALUES ($1, $2, $3), ($2, $1, $3)
		ON CONFLICT DO NOTHING
	`

	_, err := r.db.Exec(ctx, query, code, relatedCode, relation)
	if err != nil {
		return fmt.Errorf("error relating sections %s and %s: %w", code, relatedCode, err)
	}
	return nil
}

// GetRelated retrieves the sections associated with one section by kind
func (r *SectionRepository) GetRelated(ctx context.Context, code, relation string) ([]*models.Section, error) {
	query := `SELECT` + sectionColumns + `
		FROM section_relations sr
		JOIN sections s ON s.code = sr.related_code
		WHERE sr.section_code = $1 AND sr.relation = $2
		ORDER BY s.code`

	rows, err := r.db.Query(ctx, query, code, relation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning related section: %w", err)
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}
