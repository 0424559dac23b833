// models.go -- Shared domain types for the store package.
// Used by both Postgres (durable identity store) and Redis (token registry).
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrTokenNotFound is returned by Lookup when the registry has no entry for
// the token. This is the expected outcome for expired or revoked tokens.
// Callers use errors.Is to distinguish it from Redis infrastructure failures.
var ErrTokenNotFound = errors.New("token not found")

// ErrCorruptTokenEntry is returned by Lookup when a registry value exists but
// cannot be parsed back into (user_id, kind). Unlike ErrTokenNotFound this is
// data corruption, not a legitimate miss -- it must surface as a 500.
var ErrCorruptTokenEntry = errors.New("corrupt token registry entry")

// ErrNoLoginHistory is returned by GetLoginFailedHistory when the user has no
// failure row -- the Clean state of the attempt tracker.
var ErrNoLoginHistory = errors.New("no login failure history")

// User represents a row in the users table.
// Nullable columns are pointers -- nil means SQL NULL.
type User struct {
	ID           uuid.UUID
	FamilyName   string
	GivenName    string
	Email        string
	PasswordHash string
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginFailedHistory represents a row in the login_failed_histories table.
// AttemptedAt marks the start of the current counting window, not the most
// recent attempt -- a failure inside the window bumps NumberOfAttempts without
// touching AttemptedAt.
type LoginFailedHistory struct {
	UserID           uuid.UUID
	NumberOfAttempts int
	AttemptedAt      time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TokenKind distinguishes access tokens from refresh tokens in the registry.
// The tokens themselves are structurally identical; the registry's recorded
// kind is the only thing separating them.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// ParseTokenKind converts a stored string back into a TokenKind.
func ParseTokenKind(s string) (TokenKind, error) {
	switch TokenKind(s) {
	case TokenKindAccess:
		return TokenKindAccess, nil
	case TokenKindRefresh:
		return TokenKindRefresh, nil
	}
	return "", fmt.Errorf("%q is not a valid token kind", s)
}

// TokenContent is what a registry entry decodes to: who owns the token and
// which kind it was registered as.
type TokenContent struct {
	UserID uuid.UUID
	Kind   TokenKind
}

// encodeTokenContent renders the registry value format "<user_id>:<kind>".
func encodeTokenContent(userID uuid.UUID, kind TokenKind) string {
	return userID.String() + ":" + string(kind)
}

// decodeTokenContent parses "<user_id>:<kind>" back into a TokenContent.
// Any parse failure wraps ErrCorruptTokenEntry.
func decodeTokenContent(value string) (*TokenContent, error) {
	id, kindStr, ok := strings.Cut(value, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing delimiter", ErrCorruptTokenEntry)
	}
	userID, err := uuid.FromString(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id: %v", ErrCorruptTokenEntry, err)
	}
	kind, err := ParseTokenKind(kindStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTokenEntry, err)
	}
	return &TokenContent{UserID: userID, Kind: kind}, nil
}

// Todo status codes, matching the todo_statuses seed rows.
const (
	TodoStatusNotStarted int16 = 1
	TodoStatusInProgress int16 = 2
	TodoStatusCompleted  int16 = 3
	TodoStatusCancelled  int16 = 4
)

// Todo represents a row in the todos table.
// Nullable columns are pointers; nil means SQL NULL.
type Todo struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	StatusCode  int16      `json:"status_code"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	Archived    bool       `json:"archived"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TodoStatus represents a row in the todo_statuses lookup table.
type TodoStatus struct {
	Code         int16  `json:"code"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
}
