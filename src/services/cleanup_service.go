package services

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// CleanupService handles automatic cleanup of stale password reset tokens
type CleanupService struct {
	pool     *pgxpool.Pool
	enabled  bool
	interval time.Duration
	done     chan struct{}
	stop     sync.Once
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(pool *pgxpool.Pool, enabled bool) *CleanupService {
	return &CleanupService{
		pool:     pool,
		enabled:  enabled,
		interval: 24 * time.Hour, // Run daily
		done:     make(chan struct{}),
	}
}

// Start starts the cleanup service
func (cs *CleanupService) Start(ctx context.Context) {
	if !cs.enabled {
		log.Info().Msg("cleanup service is disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("cleanup service stopped")
				return
			case <-cs.done:
				log.Info().Msg("cleanup service stopped")
				return
			case <-ticker.C:
				cs.cleanup(ctx)
			}
		}
	}()

	log.Info().Msg("cleanup service started")
}

// Stop stops the cleanup service. Safe to call whether or not the
// service was enabled, and safe to call more than once.
func (cs *CleanupService) Stop() {
	cs.stop.Do(func() {
		close(cs.done)
	})
}

// cleanup deletes reset tokens that are expired or already consumed
func (cs *CleanupService) cleanup(ctx context.Context) {
	deleted, err := cs.DeleteStaleResetTokens(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cleanup error")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("cleanup completed")
	}
}

// DeleteStaleResetTokens removes expired and used password reset tokens
func (cs *CleanupService) DeleteStaleResetTokens(ctx context.Context) (int64, error) {
	result, err := cs.pool.Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < NOW() OR used_at IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
