// Package store handles all database and token-registry interactions.
//
// postgres.go -- pgxpool connection setup and queries.
// Creates a connection pool at startup, shared across all handlers.
// All queries use parameterized statements (no string concatenation).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The store used by the program to talk to the Postgres identity database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates and returns a verified connection pool
// to PostgreSQL wrapped in a store.
// Call once at startup from main.go...the returned store is safe for concurrent use.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	// Create a pool w/ database url, return if err
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	// Ping db to make sure connection works
	err = pool.Ping(ctx)
	if err != nil {
		return nil, err
	}

	return &PostgresStore{pool}, nil
}

// Close shuts down the connection pool and releases all resources.
// Supposed to call via defer in main.go after creating the store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

const userColumns = `id, family_name, given_name, email, password_hash, active,
	last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FamilyName, &u.GivenName, &u.Email, &u.PasswordHash,
		&u.Active, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new active user with email + password credentials.
// The caller has to generate the UUID v7 and the PHC hash BEFORE calling this.
// Returns raw pgx error, handler inspects it for unique violations (duplicate email).
func (s *PostgresStore) CreateUser(ctx context.Context, id uuid.UUID, familyName, givenName, email, passwordHash string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, family_name, given_name, email, password_hash, active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING `+userColumns,
		id, familyName, givenName, email, passwordHash)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email for login verification.
// Returns pgx.ErrNoRows if no such user exists.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
// Returns pgx.ErrNoRows if no such user exists.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateUser applies a partial profile update. Nil fields keep their current
// value via COALESCE. Returns pgx.ErrNoRows if the user is gone and the raw
// pgx error on a duplicate email, so the handler can map the unique violation.
func (s *PostgresStore) UpdateUser(ctx context.Context, id uuid.UUID, familyName, givenName, email *string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE users
		 SET family_name = COALESCE($1, family_name),
		     given_name = COALESCE($2, given_name),
		     email = COALESCE($3, email),
		     updated_at = now()
		 WHERE id = $4
		 RETURNING `+userColumns,
		familyName, givenName, email, id)
	return scanUser(row)
}

// SetUserActive flips the active flag. The auth subsystem only ever calls
// this indirectly through IncrementLoginAttempts; direct use is reserved for
// administrative reactivation.
func (s *PostgresStore) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET active = $1, updated_at = now() WHERE id = $2`,
		active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecordLogin applies the full "login succeeded" action in one transaction:
// update last_login_at, delete the login failure history row, and persist
// both token registry keys so logout can revoke them later.
// All-or-nothing -- a partial login record would let failure counts survive
// a successful login.
func (s *PostgresStore) RecordLogin(ctx context.Context, userID uuid.UUID, loggedInAt time.Time,
	accessKey string, accessExpiresAt time.Time, refreshKey string, refreshExpiresAt time.Time) error {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning login transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = now() WHERE id = $2`,
		loggedInAt, userID)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	// Clean state -- a success wipes the failure window entirely.
	if _, err := tx.Exec(ctx,
		`DELETE FROM login_failed_histories WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing login failures: %w", err)
	}

	for _, t := range []struct {
		key       string
		expiresAt time.Time
	}{{accessKey, accessExpiresAt}, {refreshKey, refreshExpiresAt}} {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating token row id: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_tokens (id, user_id, token_key, expires_at)
			 VALUES ($1, $2, $3, $4)`,
			id, userID, t.key, t.expiresAt); err != nil {
			return fmt.Errorf("recording token key: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListUserTokenKeys returns the registry keys of every token issued to the
// user. The Redis registry has no reverse index from user to tokens -- this
// table is how revoke-all finds its targets.
func (s *PostgresStore) ListUserTokenKeys(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT token_key FROM user_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing token keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning token key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteUserTokens removes all token rows for the user and returns the
// registry keys that were deleted, so the caller can purge them from Redis.
func (s *PostgresStore) DeleteUserTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM user_tokens WHERE user_id = $1 RETURNING token_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("deleting token keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning deleted token key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// CleanupExpiredTokens deletes user_tokens rows whose registry entries have
// long since lapsed. The Redis side expires by TTL on its own; this keeps the
// Postgres reverse index from growing without bound.
func (s *PostgresStore) CleanupExpiredTokens(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_tokens WHERE expires_at < now() - make_interval(secs => $1)`,
		retention.Seconds())
	if err != nil {
		return 0, fmt.Errorf("cleaning up expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetLoginFailedHistory fetches the user's failure row.
// Returns ErrNoLoginHistory when the user is in the Clean state.
func (s *PostgresStore) GetLoginFailedHistory(ctx context.Context, userID uuid.UUID) (*LoginFailedHistory, error) {
	var h LoginFailedHistory
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, number_of_attempts, attempted_at, created_at, updated_at
		 FROM login_failed_histories WHERE user_id = $1`, userID).
		Scan(&h.UserID, &h.NumberOfAttempts, &h.AttemptedAt, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoLoginHistory
		}
		return nil, err
	}
	return &h, nil
}

// CreateLoginFailedHistory inserts the first failure row for a user:
// Clean -> Counting(1, attemptedAt).
func (s *PostgresStore) CreateLoginFailedHistory(ctx context.Context, userID uuid.UUID, attempts int, attemptedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO login_failed_histories (user_id, number_of_attempts, attempted_at)
		 VALUES ($1, $2, $3)`,
		userID, attempts, attemptedAt)
	return err
}

// IncrementLoginAttempts bumps the failure counter and, when the new count
// exceeds maxAttempts, deactivates the user -- all in a single conditional
// statement. Two near-simultaneous failures each get their own increment;
// neither can read a stale count and lose the other's update.
// The comparison is strict: exactly maxAttempts failures are tolerated,
// the next one locks.
func (s *PostgresStore) IncrementLoginAttempts(ctx context.Context, userID uuid.UUID, maxAttempts int) error {
	tag, err := s.pool.Exec(ctx,
		`WITH bumped AS (
			UPDATE login_failed_histories
			SET number_of_attempts = number_of_attempts + 1, updated_at = now()
			WHERE user_id = $1
			RETURNING number_of_attempts
		)
		UPDATE users
		SET active = active AND bumped.number_of_attempts <= $2, updated_at = now()
		FROM bumped
		WHERE users.id = $1`,
		userID, maxAttempts)
	if err != nil {
		return fmt.Errorf("incrementing login attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoLoginHistory
	}
	return nil
}

// ResetLoginFailedHistory restarts a stale window: count back to 1,
// attempted_at moved to the new window start. Never touches users.active.
func (s *PostgresStore) ResetLoginFailedHistory(ctx context.Context, userID uuid.UUID, attemptedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE login_failed_histories
		 SET number_of_attempts = 1, attempted_at = $1, updated_at = now()
		 WHERE user_id = $2`,
		attemptedAt, userID)
	if err != nil {
		return fmt.Errorf("resetting login failures: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoLoginHistory
	}
	return nil
}
