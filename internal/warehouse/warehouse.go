// Package warehouse reads the institutional data warehouse, the read-only
// source of record for people and registrar section data.
package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oklib/courseflow/internal/pkg/apperrors"
)

// Person is a directory record for a member of the institution.
type Person struct {
	LoginID   string
	SISID     string
	FirstName string
	LastName  string
	Email     string
}

// DisplayName returns the person's name as shown on course sites.
func (p Person) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.LoginID
	}
	return name
}

// ActiveSectionStatus is the registrar status of sections still on the
// books; anything else means the section was canceled.
const ActiveSectionStatus = "A"

// SectionRecord is a registrar section row for one term.
type SectionRecord struct {
	SectionID    string
	Term         int
	Title        string
	SchoolCode   string
	SubjectCode  string
	CourseNumber string
	SectionCode  string
	ScheduleType string
	Status       string
	// PrimaryCrosslist holds the section id of the primary section when this
	// row is a crosslisted child, empty otherwise.
	PrimaryCrosslist string
	XlistFamily      string
}

// SchoolRecord is a registrar school row.
type SchoolRecord struct {
	Code string
	Name string
}

// SubjectRecord is a registrar subject row.
type SubjectRecord struct {
	Code       string
	Name       string
	SchoolCode string
}

// ScheduleTypeRecord is a registrar schedule type row.
type ScheduleTypeRecord struct {
	Code string
	Name string
}

// Directory is the read surface the sync and provisioning flows need from
// the warehouse.
type Directory interface {
	// GetPerson resolves a login id to a directory record. Returns
	// apperrors.ErrUserNotFound when the directory has no such person.
	GetPerson(ctx context.Context, loginID string) (*Person, error)

	// ListTermSections returns every registrar section for the given term.
	ListTermSections(ctx context.Context, term int) ([]SectionRecord, error)

	// ListSectionInstructors returns the assigned instructors of one section.
	ListSectionInstructors(ctx context.Context, sectionID string, term int) ([]Person, error)

	// ListSchools returns the registrar's school dimension rows.
	ListSchools(ctx context.Context) ([]SchoolRecord, error)

	// ListSubjects returns the registrar's subject dimension rows.
	ListSubjects(ctx context.Context) ([]SubjectRecord, error)

	// ListScheduleTypes returns the registrar's schedule type rows.
	ListScheduleTypes(ctx context.Context) ([]ScheduleTypeRecord, error)
}

// PostgresDirectory implements Directory against the warehouse mirror.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

var _ Directory = (*PostgresDirectory)(nil)

// NewPostgresDirectory creates a Directory backed by the given pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// Connect opens a pool against the warehouse mirror and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("warehouse: ping: %w", err)
	}
	return pool, nil
}

func (d *PostgresDirectory) GetPerson(ctx context.Context, loginID string) (*Person, error) {
	query := `
		SELECT login_id, sis_id, first_name, last_name, email
		FROM directory_people
		WHERE login_id = $1`

	var person Person
	err := d.pool.QueryRow(ctx, query, strings.ToLower(loginID)).Scan(
		&person.LoginID,
		&person.SISID,
		&person.FirstName,
		&person.LastName,
		&person.Email,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("warehouse: querying person %s: %w", loginID, err)
	}
	return &person, nil
}

func (d *PostgresDirectory) ListTermSections(ctx context.Context, term int) ([]SectionRecord, error) {
	query := `
		SELECT section_id, term, title, school_code, subject_code,
		       course_number, section_code, schedule_type, section_status,
		       COALESCE(primary_crosslist, ''), COALESCE(xlist_family, '')
		FROM registrar_sections
		WHERE term = $1
		ORDER BY section_id`

	rows, err := d.pool.Query(ctx, query, term)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying term %d sections: %w", term, err)
	}
	defer rows.Close()

	var records []SectionRecord
	for rows.Next() {
		var rec SectionRecord
		err := rows.Scan(
			&rec.SectionID,
			&rec.Term,
			&rec.Title,
			&rec.SchoolCode,
			&rec.SubjectCode,
			&rec.CourseNumber,
			&rec.SectionCode,
			&rec.ScheduleType,
			&rec.Status,
			&rec.PrimaryCrosslist,
			&rec.XlistFamily,
		)
		if err != nil {
			return nil, fmt.Errorf("warehouse: scanning section row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: reading section rows: %w", err)
	}
	return records, nil
}

func (d *PostgresDirectory) ListSectionInstructors(ctx context.Context, sectionID string, term int) ([]Person, error) {
	query := `
		SELECT p.login_id, p.sis_id, p.first_name, p.last_name, p.email
		FROM registrar_instructors i
		JOIN directory_people p ON p.sis_id = i.instructor_sis_id
		WHERE i.section_id = $1 AND i.term = $2
		ORDER BY p.last_name, p.first_name`

	rows, err := d.pool.Query(ctx, query, sectionID, term)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying instructors for %s: %w", sectionID, err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var person Person
		err := rows.Scan(
			&person.LoginID,
			&person.SISID,
			&person.FirstName,
			&person.LastName,
			&person.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("warehouse: scanning instructor row: %w", err)
		}
		people = append(people, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: reading instructor rows: %w", err)
	}
	return people, nil
}

func (d *PostgresDirectory) ListSchools(ctx context.Context) ([]SchoolRecord, error) {
	query := `SELECT school_code, school_desc FROM registrar_schools ORDER BY school_code`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying schools: %w", err)
	}
	defer rows.Close()

	var records []SchoolRecord
	for rows.Next() {
		var rec SchoolRecord
		if err := rows.Scan(&rec.Code, &rec.Name); err != nil {
			return nil, fmt.Errorf("warehouse: scanning school row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (d *PostgresDirectory) ListSubjects(ctx context.Context) ([]SubjectRecord, error) {
	query := `SELECT subject_code, subject_desc, school_code FROM registrar_subjects ORDER BY subject_code`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying subjects: %w", err)
	}
	defer rows.Close()

	var records []SubjectRecord
	for rows.Next() {
		var rec SubjectRecord
		if err := rows.Scan(&rec.Code, &rec.Name, &rec.SchoolCode); err != nil {
			return nil, fmt.Errorf("warehouse: scanning subject row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (d *PostgresDirectory) ListScheduleTypes(ctx context.Context) ([]ScheduleTypeRecord, error) {
	query := `SELECT sched_type_code, sched_type_desc FROM registrar_schedule_types ORDER BY sched_type_code`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying schedule types: %w", err)
	}
	defer rows.Close()

	var records []ScheduleTypeRecord
	for rows.Next() {
		var rec ScheduleTypeRecord
		if err := rows.Scan(&rec.Code, &rec.Name); err != nil {
			return nil, fmt.Errorf("warehouse: scanning schedule type row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
