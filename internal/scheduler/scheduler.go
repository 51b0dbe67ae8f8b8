package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/logger"
)

// jobTimeout caps a single scheduled run. Reports fan out over SMTP and can be
// slow; anything past this is wedged, not busy.
const jobTimeout = 10 * time.Minute

// Scheduler drives the periodic jobs: daily survey reports and the expired
// token sweep.
type Scheduler struct {
	cron   *cron.Cron
	config *config.Config

	reportJob  func(ctx context.Context) error
	cleanupJob func(ctx context.Context) error
}

func New(cfg *config.Config, reportJob, cleanupJob func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		config:     cfg,
		reportJob:  reportJob,
		cleanupJob: cleanupJob,
	}
}

func (s *Scheduler) Start() error {
	if s.config.Report.Enabled {
		if _, err := s.cron.AddFunc(s.config.Report.Cron, s.run("daily_report", s.reportJob)); err != nil {
			return err
		}
	}
	if _, err := s.cron.AddFunc(s.config.Report.CleanupCron, s.run("token_cleanup", s.cleanupJob)); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Scheduler started",
		"report_enabled", s.config.Report.Enabled,
		"report_cron", s.config.Report.Cron,
		"cleanup_cron", s.config.Report.CleanupCron)
	return nil
}

// Stop waits for any in-flight job before returning.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			logger.ErrorContext(ctx, "Scheduled job failed", "job", name, "error", err)
			return
		}
		logger.InfoContext(ctx, "Scheduled job completed", "job", name, "duration", time.Since(start).String())
	}
}
