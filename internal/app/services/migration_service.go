package services

import (
	"context"
	"time"

	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/pkg/logger"
)

// Sleeper blocks between migration status polls. Injected so tests can run
// without real delays.
type Sleeper func(time.Duration)

// MigrationService starts content copies and waits for them to finish.
type MigrationService struct {
	canvas       canvas.API
	pollInterval time.Duration
	maxAttempts  int
	sleep        Sleeper
}

// NewMigrationService creates a new migration service with the given poll
// policy.
func NewMigrationService(api canvas.API, pollInterval time.Duration, maxAttempts int) *MigrationService {
	return &MigrationService{
		canvas:       api,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		sleep:        time.Sleep,
	}
}

// Await starts a course-copy import from sourceCourseID into courseID and
// polls until the migration leaves the queued/running states or the attempt
// ceiling is reached. It returns true only when the final observed status
// is complete; attempt exhaustion and failed imports return false without
// an error. Errors from the LMS propagate to the caller.
func (s *MigrationService) Await(ctx context.Context, courseID, sourceCourseID int64) (bool, error) {
	migration, err := s.canvas.StartContentCopy(ctx, courseID, sourceCourseID)
	if err != nil {
		return false, err
	}

	status, err := s.canvas.GetMigrationStatus(ctx, migration)
	if err != nil {
		return false, err
	}

	attempts := 0
	for status.Active() && attempts < s.maxAttempts {
		logger.Debug().
			Int64("course_id", courseID).
			Str("status", string(status)).
			Int("attempt", attempts).
			Msg("Waiting for content migration")
		s.sleep(s.pollInterval)

		status, err = s.canvas.GetMigrationStatus(ctx, migration)
		if err != nil {
			return false, err
		}
		attempts++
	}

	if status != canvas.MigrationComplete {
		logger.Error().
			Int64("course_id", courseID).
			Int64("source_course_id", sourceCourseID).
			Str("status", string(status)).
			Msg("Content migration did not complete")
		return false, nil
	}

	logger.Info().Int64("course_id", courseID).Msg("Content migration complete")
	return true, nil
}
