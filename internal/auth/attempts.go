// attempts.go

// Login failure tracking and account lockout.
//
// Per-user state machine: Clean (no history row) -> Counting(n, windowStart)
// -> Locked (users.active = false). Locking is one-directional from here --
// nothing in this subsystem ever reactivates a user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MGallo-Code/styx/internal/store"
	"github.com/gofrs/uuid/v5"
)

// AttemptStore defines the identity-store operations the tracker needs.
// Satisfied by *store.PostgresStore -- defined here (at consumer) per Go convention.
type AttemptStore interface {
	// GetLoginFailedHistory fetches the user's failure row.
	// Returns store.ErrNoLoginHistory in the Clean state.
	GetLoginFailedHistory(ctx context.Context, userID uuid.UUID) (*store.LoginFailedHistory, error)

	// CreateLoginFailedHistory inserts the first failure row: Counting(1, attemptedAt).
	CreateLoginFailedHistory(ctx context.Context, userID uuid.UUID, attempts int, attemptedAt time.Time) error

	// IncrementLoginAttempts atomically bumps the counter and deactivates the
	// user when the new count exceeds maxAttempts.
	IncrementLoginAttempts(ctx context.Context, userID uuid.UUID, maxAttempts int) error

	// ResetLoginFailedHistory restarts a stale window at (1, attemptedAt).
	ResetLoginFailedHistory(ctx context.Context, userID uuid.UUID, attemptedAt time.Time) error
}

// LoginAttemptTracker decides, per failed login, whether to start a window,
// extend one, or reset a stale one.
//
// MaxAttempts failures are tolerated within Window; the next failure inside
// the same window locks the account. A failure after the window has elapsed
// resets the count to 1 and never locks, regardless of the prior count --
// the stale window is dead evidence.
type LoginAttemptTracker struct {
	Store       AttemptStore
	MaxAttempts int
	Window      time.Duration
}

// RecordFailure advances the state machine for one failed login attempt.
// Callers must pass a context that survives request cancellation
// (context.WithoutCancel) -- a half-recorded failure is worse than a slow
// response.
func (t *LoginAttemptTracker) RecordFailure(ctx context.Context, userID uuid.UUID, now time.Time) error {
	history, err := t.Store.GetLoginFailedHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoLoginHistory) {
			// Clean -> Counting(1, now)
			if err := t.Store.CreateLoginFailedHistory(ctx, userID, 1, now); err != nil {
				return fmt.Errorf("creating login failure history: %w", err)
			}
			return nil
		}
		return fmt.Errorf("fetching login failure history: %w", err)
	}

	if now.Sub(history.AttemptedAt) < t.Window {
		// Still inside the window: Counting(n) -> Counting(n+1), and Locked
		// when n+1 > MaxAttempts. The increment-and-maybe-lock is a single
		// conditional statement in the store.
		if err := t.Store.IncrementLoginAttempts(ctx, userID, t.MaxAttempts); err != nil {
			return fmt.Errorf("incrementing login attempts: %w", err)
		}
		return nil
	}

	// Window elapsed: restart at Counting(1, now). Never locks.
	if err := t.Store.ResetLoginFailedHistory(ctx, userID, now); err != nil {
		return fmt.Errorf("resetting login failure history: %w", err)
	}
	return nil
}
