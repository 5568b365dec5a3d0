package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/dberrors"
)

// RequestRepository handles database operations for provisioning requests
type RequestRepository struct {
	db *pgxpool.Pool
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{
		db: db,
	}
}

const requestColumns = `
	r.section_code, r.requester_id, r.proxy_requester_id, r.title_override,
	r.copy_from_course, r.reserves, r.lms_online, r.exclude_announcements,
	r.additional_instructions, r.admin_instructions, r.process_notes,
	r.status, r.created_at, r.updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*models.Request, error) {
	var request models.Request
	err := row.Scan(
		&request.SectionCode,
		&request.RequesterID,
		&request.ProxyRequesterID,
		&request.TitleOverride,
		&request.CopyFromCourse,
		&request.Reserves,
		&request.LMSOnline,
		&request.ExcludeAnnouncements,
		&request.AdditionalInstructions,
		&request.AdminInstructions,
		&request.ProcessNotes,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a new request. The section primary key enforces the
// one-request-per-section invariant.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	query := `
		INSERT INTO requests (
			section_code, requester_id, proxy_requester_id, title_override,
			copy_from_course, reserves, lms_online, exclude_announcements,
			additional_instructions, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		request.SectionCode,
		request.RequesterID,
		request.ProxyRequesterID,
		request.TitleOverride,
		request.CopyFromCourse,
		request.Reserves,
		request.LMSOnline,
		request.ExcludeAnnouncements,
		request.AdditionalInstructions,
		request.Status,
	).Scan(&request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrSectionAlreadyRequested
		}
		return fmt.Errorf("error creating request for %s: %w", request.SectionCode, err)
	}
	return nil
}

// GetBySectionCode retrieves a request by its section
func (r *RequestRepository) GetBySectionCode(ctx context.Context, sectionCode string) (*models.Request, error) {
	query := `SELECT` + requestColumns + ` FROM requests r WHERE r.section_code = $1`

	request, err := scanRequest(r.db.QueryRow(ctx, query, sectionCode))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("error retrieving request %s: %w", sectionCode, err)
	}
	return request, nil
}

// GetByStatus retrieves requests in a given status, oldest first
func (r *RequestRepository) GetByStatus(ctx context.Context, status models.Status) ([]*models.Request, error) {
	query := `SELECT` + requestColumns + ` FROM requests r WHERE r.status = $1 ORDER BY r.created_at`
	return r.queryRequests(ctx, query, status)
}

// GetByRequester retrieves requests submitted by or on behalf of a user
func (r *RequestRepository) GetByRequester(ctx context.Context, userID int64) ([]*models.Request, error) {
	query := `SELECT` + requestColumns + `
		FROM requests r
		WHERE r.requester_id = $1 OR r.proxy_requester_id = $1
		ORDER BY r.created_at DESC`
	return r.queryRequests(ctx, query, userID)
}

// GetAll retrieves every request, newest first
func (r *RequestRepository) GetAll(ctx context.Context) ([]*models.Request, error) {
	query := `SELECT` + requestColumns + ` FROM requests r ORDER BY r.created_at DESC`
	return r.queryRequests(ctx, query)
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// UpdateStatus persists a status change
func (r *RequestRepository) UpdateStatus(ctx context.Context, sectionCode string, status models.Status) error {
	query := `UPDATE requests SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE section_code = $1`

	tag, err := r.db.Exec(ctx, query, sectionCode, status)
	if err != nil {
		return fmt.Errorf("error updating status of %s: %w", sectionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRequestNotFound
	}
	return nil
}

// UpdateProcessNotes persists the diagnostic trail
func (r *RequestRepository) UpdateProcessNotes(ctx context.Context, sectionCode, notes string) error {
	query := `UPDATE requests SET process_notes = $2, updated_at = CURRENT_TIMESTAMP WHERE section_code = $1`

	tag, err := r.db.Exec(ctx, query, sectionCode, notes)
	if err != nil {
		return fmt.Errorf("error updating process notes of %s: %w", sectionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRequestNotFound
	}
	return nil
}

// Update persists the admin-editable request fields
func (r *RequestRepository) Update(ctx context.Context, request *models.Request) error {
	query := `
		UPDATE requests SET
			title_override = $2,
			copy_from_course = $3,
			reserves = $4,
			lms_online = $5,
			exclude_announcements = $6,
			additional_instructions = $7,
			admin_instructions = $8,
			status = $9,
			updated_at = CURRENT_TIMESTAMP
		WHERE section_code = $1
	`

	tag, err := r.db.Exec(ctx, query,
		request.SectionCode,
		request.TitleOverride,
		request.CopyFromCourse,
		request.Reserves,
		request.LMSOnline,
		request.ExcludeAnnouncements,
		request.AdditionalInstructions,
		request.AdminInstructions,
		request.Status,
	)
	if err != nil {
		return fmt.Errorf("error updating request %s: %w", request.SectionCode, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRequestNotFound
	}
	return nil
}

// SetIncludedSections replaces the sections provisioned jointly with the
// primary one
func (r *RequestRepository) SetIncludedSections(ctx context.Context, sectionCode string, includedCodes []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting included-sections transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM request_included_sections WHERE request_section_code = $1`, sectionCode)
	if err != nil {
		return fmt.Errorf("error clearing included sections of %s: %w", sectionCode, err)
	}

	for _, code := range includedCodes {
		_, err := tx.Exec(ctx,
			`INSERT INTO request_included_sections (request_section_code, section_code)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			sectionCode, code)
		if err != nil {
			return fmt.Errorf("error including section %s in %s: %w", code, sectionCode, err)
		}
	}

	return tx.Commit(ctx)
}

// GetIncludedSections retrieves the sections provisioned jointly with the
// primary one
func (r *RequestRepository) GetIncludedSections(ctx context.Context, sectionCode string) ([]*models.Section, error) {
	query := `SELECT` + sectionColumns + `
		FROM request_included_sections ris
		JOIN sections s ON s.code = ris.section_code
		WHERE ris.request_section_code = $1
		ORDER BY s.code`

	rows, err := r.db.Query(ctx, query, sectionCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning included section: %w", err)
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}
