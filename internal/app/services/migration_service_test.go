package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oklib/courseflow/internal/canvas"
)

func newTestMigrationService(api *fakeCanvas, maxAttempts int) (*MigrationService, *int) {
	service := NewMigrationService(api, 5*time.Second, maxAttempts)
	sleeps := 0
	service.sleep = func(time.Duration) { sleeps++ }
	return service, &sleeps
}

func TestAwaitCompletes(t *testing.T) {
	api := newFakeCanvas()
	api.migrationStatuses = []canvas.MigrationStatus{
		canvas.MigrationQueued,
		canvas.MigrationRunning,
		canvas.MigrationComplete,
	}

	service, sleeps := newTestMigrationService(api, 180)
	completed, err := service.Await(context.Background(), 777, 888)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, 2, *sleeps)
	assert.Equal(t, 1, api.migrationsStarted)
}

// With a ceiling of 3 attempts and a migration that never finishes, Await
// gives up after exactly 3 polls past the initial check.
func TestAwaitAttemptsExhausted(t *testing.T) {
	api := newFakeCanvas()
	api.migrationStatuses = []canvas.MigrationStatus{
		canvas.MigrationRunning,
		canvas.MigrationRunning,
		canvas.MigrationRunning,
		canvas.MigrationRunning,
	}

	service, sleeps := newTestMigrationService(api, 3)
	completed, err := service.Await(context.Background(), 777, 888)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, 3, *sleeps)
	assert.Equal(t, 4, api.statusIndex, "initial check plus three polls")
}

func TestAwaitFailedMigration(t *testing.T) {
	api := newFakeCanvas()
	api.migrationStatuses = []canvas.MigrationStatus{
		canvas.MigrationRunning,
		canvas.MigrationFailed,
	}

	service, _ := newTestMigrationService(api, 180)
	completed, err := service.Await(context.Background(), 777, 888)
	require.NoError(t, err)
	assert.False(t, completed, "a failed import is reported, not raised")
}

func TestAwaitPropagatesStartError(t *testing.T) {
	api := newFakeCanvas()
	api.startErr = errors.New("rate limited")

	service, _ := newTestMigrationService(api, 180)
	completed, err := service.Await(context.Background(), 777, 888)
	require.Error(t, err)
	assert.False(t, completed)
}
