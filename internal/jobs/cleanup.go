// Package jobs holds the maintenance tasks run by the background worker.
package jobs

import (
	"context"
	"fmt"
)

// Job type constants for cleanup jobs
const (
	JobTypeCleanupExpiredSessions = "cleanup:expired_sessions"
)

// SessionSweeper deletes sessions past their expiry.
type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	SessionsDeleted int64 `json:"sessions_deleted"`
}

// CleanupExpiredSessions removes expired sessions so the sessions table only
// holds tokens that can still resolve to a viewer.
func CleanupExpiredSessions(ctx context.Context, store SessionSweeper) (*CleanupResult, error) {
	n, err := store.DeleteExpiredSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return &CleanupResult{SessionsDeleted: n}, nil
}
