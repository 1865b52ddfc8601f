package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper removes expired sessions and reports how many it closed.
type Sweeper interface {
	Sweep(now time.Time, idleTTL, retainTTL time.Duration) int
}

// JanitorConfig contains configuration for the janitor job
type JanitorConfig struct {
	Schedule  string        // Cron schedule (e.g., "@every 1m")
	IdleTTL   time.Duration // Non-terminal sessions without activity for this long are closed
	RetainTTL time.Duration // Finished sessions are kept this long for late readers
}

// SessionJanitorJob periodically closes abandoned and finished sessions
type SessionJanitorJob struct {
	sweeper Sweeper
	config  *JanitorConfig
	cron    *cron.Cron
	logger  *zap.Logger
	now     func() time.Time
}

func NewSessionJanitorJob(sweeper Sweeper, config *JanitorConfig, logger *zap.Logger) *SessionJanitorJob {
	return &SessionJanitorJob{
		sweeper: sweeper,
		config:  config,
		cron:    cron.New(),
		logger:  logger,
		now:     time.Now,
	}
}

// Start schedules the sweep
func (j *SessionJanitorJob) Start() error {
	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		j.RunSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session janitor: %w", err)
	}

	j.cron.Start()
	j.logger.Info("Session janitor started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop waits for a running sweep to finish
func (j *SessionJanitorJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("Session janitor stopped")
	}
}

// RunSweep performs a single sweep
func (j *SessionJanitorJob) RunSweep() int {
	removed := j.sweeper.Sweep(j.now(), j.config.IdleTTL, j.config.RetainTTL)
	if removed > 0 {
		j.logger.Info("Session janitor removed sessions", zap.Int("count", removed))
	}
	return removed
}
