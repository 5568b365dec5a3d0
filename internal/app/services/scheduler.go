package services

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/oklib/courseflow/internal/pkg/logger"
)

// Scheduler runs the recurring background jobs: batch provisioning of
// approved requests and directory synchronization.
type Scheduler struct {
	cron      *cron.Cron
	provision *ProvisionService
	sync      *SyncService
	terms     []int
}

// NewScheduler creates a scheduler over the provisioning and sync services.
// terms are the academic terms kept in sync.
func NewScheduler(provision *ProvisionService, sync *SyncService, terms ...int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		provision: provision,
		sync:      sync,
		terms:     terms,
	}
}

// Start registers the jobs and begins the schedule.
func (s *Scheduler) Start(provisionSpec, syncSpec string) error {
	if _, err := s.cron.AddFunc(provisionSpec, s.runProvision); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(syncSpec, s.runSync); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().
		Str("provision", provisionSpec).
		Str("sync", syncSpec).
		Msg("Scheduler started")
	return nil
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runProvision() {
	if _, _, err := s.provision.ProvisionApproved(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Scheduled provisioning run failed")
	}
}

func (s *Scheduler) runSync() {
	ctx := context.Background()
	if err := s.sync.SyncDimensions(ctx); err != nil {
		logger.Error().Err(err).Msg("Scheduled dimension sync failed")
		return
	}
	if err := s.sync.SyncTerms(ctx, s.terms...); err != nil {
		logger.Error().Err(err).Msg("Scheduled term sync failed")
	}
}
