package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

// Scheduler runs the detection cycle on a cron schedule. A cycle that is
// still running when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	runner *Runner
	cron   *cron.Cron
	spec   string
	logger *logger.Logger
}

// NewScheduler creates a scheduler from configuration
func NewScheduler(runner *Runner, cfg config.ScheduleConfig, log *logger.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(cfg.DetectionSpec); err != nil {
		return nil, fmt.Errorf("invalid detection schedule %q: %w", cfg.DetectionSpec, err)
	}
	return &Scheduler{
		runner: runner,
		spec:   cfg.DetectionSpec,
		logger: log,
	}, nil
}

// Start registers the job and starts the cron loop. It returns immediately;
// cancel ctx to request shutdown and call Stop to wait for a running cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{s.logger}),
		cron.Recover(cronLogger{s.logger}),
	))
	_, err := s.cron.AddFunc(s.spec, func() {
		if ctx.Err() != nil {
			return
		}
		s.runner.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("registering detection job: %w", err)
	}
	s.cron.Start()
	s.logger.Infof("Scheduler started with spec %q", s.spec)
	return nil
}

// Stop stops the cron loop and blocks until any running cycle returns
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// cronLogger adapts our logger to the cron.Logger interface
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.ErrorWithErr(err, fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}
