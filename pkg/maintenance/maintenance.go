// Package maintenance runs the portal's background jobs on cron schedules:
// expired-session purging and audit-event retention.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/devopshub/gatehouse/pkg/audit"
	"github.com/devopshub/gatehouse/pkg/auth"
	"github.com/devopshub/gatehouse/pkg/observability"
)

// Config carries the schedules and retention window for background jobs
type Config struct {
	// SessionPurgeSchedule is a cron expression, e.g. "@every 1h"
	SessionPurgeSchedule string

	// AuditPurgeSchedule is a cron expression, e.g. "@daily"
	AuditPurgeSchedule string

	// AuditRetention is how long audit events are kept
	AuditRetention time.Duration
}

// Runner owns the cron scheduler and its jobs
type Runner struct {
	cron     *cron.Cron
	sessions auth.SessionStore
	auditor  audit.Recorder
	cfg      Config
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewRunner creates a runner; Start must be called to begin scheduling
func NewRunner(sessions auth.SessionStore, auditor audit.Recorder, cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Runner {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &Runner{
		cron:     cron.New(),
		sessions: sessions,
		auditor:  auditor,
		cfg:      cfg,
		logger:   logger.WithField("component", "maintenance"),
		metrics:  metrics,
	}
}

// Start registers and begins the scheduled jobs
func (r *Runner) Start() error {
	if r.cfg.SessionPurgeSchedule != "" {
		if _, err := r.cron.AddFunc(r.cfg.SessionPurgeSchedule, r.purgeSessions); err != nil {
			return err
		}
	}

	if r.cfg.AuditPurgeSchedule != "" && r.auditor != nil && r.cfg.AuditRetention > 0 {
		if _, err := r.cron.AddFunc(r.cfg.AuditPurgeSchedule, r.purgeAuditEvents); err != nil {
			return err
		}
	}

	r.cron.Start()
	r.logger.Info("Maintenance jobs started")
	return nil
}

// Stop halts the scheduler, waiting for running jobs to finish
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Maintenance jobs stopped")
}

func (r *Runner) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := r.sessions.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		r.logger.WithError(err).Error("Failed to purge expired sessions")
		return
	}

	if deleted > 0 {
		r.logger.WithField("deleted", deleted).Info("Purged expired sessions")
	}

	if r.metrics != nil {
		if count, err := r.sessions.CountSessions(ctx); err == nil {
			r.metrics.ActiveSessionsTotal.Set(float64(count))
		}
	}
}

func (r *Runner) purgeAuditEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-r.cfg.AuditRetention)
	deleted, err := r.auditor.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		r.logger.WithError(err).Error("Failed to purge audit events")
		return
	}

	if deleted > 0 {
		r.logger.WithFields(map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Purged audit events")
	}
}
