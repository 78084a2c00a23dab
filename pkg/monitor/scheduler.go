package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a check every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Checker runs one monitoring pass.
type Checker interface {
	Check(ctx context.Context) (*CheckResult, error)
}

// Scheduler runs a Checker on a cron schedule.
type Scheduler struct {
	checker  Checker
	schedule string
	timeout  time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
	entryID  cron.EntryID
}

func NewScheduler(checker Checker, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid monitoring schedule '%s': %w", schedule, err)
	}

	return &Scheduler{
		checker:  checker,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger.With("module", "monitor_scheduler"),
	}, nil
}

// Start registers the job and starts the cron loop. The job stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug))

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add monitoring job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.logger.Info("Monitoring scheduler started", "schedule", s.schedule, "entry_id", entryID)

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.checker.Check(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Monitoring check failed", "error", err)

		return
	}

	s.logger.DebugContext(ctx, "Monitoring check completed",
		"connected", result.Connected,
		"transitioned", result.Transitioned,
		"alerted", result.Alerted)
}

// Stop waits for a running check to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
	s.logger.Info("Monitoring scheduler stopped")
}
