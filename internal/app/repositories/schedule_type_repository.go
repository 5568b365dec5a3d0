package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oklib/courseflow/internal/app/models"
)

// ScheduleTypeRepository handles database operations for schedule types
type ScheduleTypeRepository struct {
	db *pgxpool.Pool
}

// NewScheduleTypeRepository creates a new schedule type repository
func NewScheduleTypeRepository(db *pgxpool.Pool) *ScheduleTypeRepository {
	return &ScheduleTypeRepository{
		db: db,
	}
}

// Upsert inserts a schedule type or refreshes its name
func (r *ScheduleTypeRepository) Upsert(ctx context.Context, scheduleType *models.ScheduleType) error {
	query := `
		INSERT INTO schedule_types (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
	`

	_, err := r.db.Exec(ctx, query, scheduleType.Code, scheduleType.Name)
	if err != nil {
		return fmt.Errorf("error upserting schedule type %s: %w", scheduleType.Code, err)
	}
	return nil
}

// GetAll retrieves all schedule types
func (r *ScheduleTypeRepository) GetAll(ctx context.Context) ([]*models.ScheduleType, error) {
	query := `SELECT code, name FROM schedule_types ORDER BY code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*models.ScheduleType
	for rows.Next() {
		var scheduleType models.ScheduleType
		if err := rows.Scan(&scheduleType.Code, &scheduleType.Name); err != nil {
			return nil, fmt.Errorf("error scanning schedule type: %w", err)
		}
		types = append(types, &scheduleType)
	}
	return types, rows.Err()
}
