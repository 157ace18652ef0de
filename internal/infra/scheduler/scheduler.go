package scheduler

import (
	"context"
	"fmt"
	"time"

	"study_streak_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultDispatchTimeout = 50 * time.Second

// Dispatcher delivers due notifications. Implemented by app.DeliveryService.
type Dispatcher interface {
	DispatchDue(ctx context.Context) (app.DispatchReport, error)
}

type DispatchScheduler struct {
	cronEngine *cron.Cron
	dispatcher Dispatcher
	logger     *logrus.Entry
	cronSpec   string
	timeout    time.Duration
	baseCtx    context.Context
	cancelJobs context.CancelFunc
}

func NewDispatchScheduler(
	dispatcher Dispatcher,
	logger *logrus.Entry,
	location *time.Location,
	cronSpec string, // e.g., "* * * * *" (every minute)
	timeout time.Duration, // per-run limit, <= 0 for the default
) *DispatchScheduler {
	if location == nil {
		location = time.Local
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &DispatchScheduler{
		// SkipIfStillRunning keeps one dispatch at a time when a run overruns its slot.
		cronEngine: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		dispatcher: dispatcher,
		logger:     logger,
		cronSpec:   cronSpec,
		timeout:    timeout,
		baseCtx:    baseCtx,
		cancelJobs: cancel,
	}
}

// Start registers the dispatch job and starts the cron engine.
func (s *DispatchScheduler) Start() error {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting dispatch scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.dispatch); err != nil {
		return fmt.Errorf("could not add dispatch cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Dispatch scheduler started.")
	return nil
}

func (s *DispatchScheduler) dispatch() {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()

	report, err := s.dispatcher.DispatchDue(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during notification dispatch")
		return
	}
	if report.Due > 0 {
		s.logger.WithFields(logrus.Fields{
			"due":         report.Due,
			"delivered":   report.Delivered,
			"rescheduled": report.Rescheduled,
			"removed":     report.Removed,
		}).Debug("Dispatch run completed")
	}
}

// Stop stops scheduling new runs and waits for a running dispatch to finish.
// A dispatch still running when ctx expires is cancelled.
func (s *DispatchScheduler) Stop(ctx context.Context) {
	s.logger.Info("Stopping dispatch scheduler...")
	done := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.cancelJobs()
		<-done.Done()
	}
	s.cancelJobs()
	s.logger.Info("Dispatch scheduler gracefully stopped.")
}
