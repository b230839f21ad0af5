package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"salakbook/internal/config"
	"salakbook/internal/service/reporting"
	"salakbook/internal/service/users"
	"salakbook/internal/session"
)

// Scheduler runs the nightly summary job for every registered user.
type Scheduler struct {
	cron         *cron.Cron
	reportingSvc *reporting.Service
	usersSvc     *users.Service
	sessions     *session.Manager
	cfg          config.ReportingConfig
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.ReportingConfig, reportingSvc *reporting.Service, usersSvc *users.Service, sessions *session.Manager, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, scheduling in local time", zap.String("timezone", cfg.Timezone))
		location = time.Local
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(location)),
		reportingSvc: reportingSvc,
		usersSvc:     usersSvc,
		sessions:     sessions,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the daily summary job and launches the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.publishDailySummaries); err != nil {
		s.logger.Error("failed to schedule daily summaries", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) publishDailySummaries() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	names, err := s.usersSvc.Usernames(ctx)
	if err != nil {
		s.logger.Error("failed to list users for daily summaries", zap.Error(err))
		return
	}

	day := time.Now()
	for _, username := range names {
		sess := s.sessions.Start(username)
		summary, err := s.reportingSvc.PublishDailySummary(ctx, sess, day)
		if err != nil {
			s.logger.Error("failed to publish daily summary",
				zap.String("user", username), zap.Error(err))
			continue
		}
		s.logger.Info("daily summary published",
			zap.String("user", username),
			zap.Int("total_bakul", summary.TotalBakul))
	}
}
