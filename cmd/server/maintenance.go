package main

import (
	"context"
	"log/slog"
	"time"
)

type expiredTokenStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type activityPurger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// maintenance drops expired tokens and activity older than the retention window
type maintenance struct {
	interval      time.Duration
	retention     time.Duration
	refreshTokens expiredTokenStore
	blacklist     expiredTokenStore
	activity      activityPurger
	logger        *slog.Logger
}

// Run sweeps once immediately, then every interval until ctx is done
func (m *maintenance) Run(ctx context.Context) {
	m.sweep(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *maintenance) sweep(ctx context.Context) {
	if n, err := m.refreshTokens.DeleteExpired(ctx); err != nil {
		m.logger.Error("Failed to delete expired refresh tokens", "error", err)
	} else if n > 0 {
		m.logger.Info("Deleted expired refresh tokens", "count", n)
	}

	if n, err := m.blacklist.DeleteExpired(ctx); err != nil {
		m.logger.Error("Failed to delete expired blacklisted tokens", "error", err)
	} else if n > 0 {
		m.logger.Info("Deleted expired blacklisted tokens", "count", n)
	}

	if m.retention <= 0 {
		return
	}
	if n, err := m.activity.Purge(ctx, m.retention); err != nil {
		m.logger.Error("Failed to purge activity log", "error", err)
	} else if n > 0 {
		m.logger.Info("Purged activity log entries", "count", n, "retention", m.retention)
	}
}
