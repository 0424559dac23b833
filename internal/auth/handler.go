// handler.go -- HTTP handlers for sign-up, login, logout, and the /me pair.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	netmail "net/mail"
	"time"

	"github.com/MGallo-Code/styx/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store defines the identity-store operations needed by auth handlers.
// Satisfied by *store.PostgresStore -- defined here (at consumer) per Go convention.
type Store interface {
	// CreateUser inserts a new active user with a PHC password hash.
	CreateUser(ctx context.Context, id uuid.UUID, familyName, givenName, email, passwordHash string) (*store.User, error)

	// GetUserByEmail fetches a user by email for login verification.
	// Returns pgx.ErrNoRows if not found.
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)

	// GetUserByID fetches a user by primary key.
	// Returns pgx.ErrNoRows if not found.
	GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error)

	// UpdateUser applies a partial profile update; nil fields keep their
	// current value. Returns the raw pgx error on a duplicate email.
	UpdateUser(ctx context.Context, id uuid.UUID, familyName, givenName, email *string) (*store.User, error)

	// RecordLogin applies the "login succeeded" action in one transaction:
	// last_login_at, failure-history deletion, and both token keys.
	RecordLogin(ctx context.Context, userID uuid.UUID, loggedInAt time.Time,
		accessKey string, accessExpiresAt time.Time, refreshKey string, refreshExpiresAt time.Time) error

	// ListUserTokenKeys enumerates the user's registry keys for revocation.
	ListUserTokenKeys(ctx context.Context, userID uuid.UUID) ([]string, error)

	// DeleteUserTokens removes the user's token rows, returning their keys.
	DeleteUserTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Registry defines the token-registry operations needed by auth handlers.
// Satisfied by *store.TokenRegistry -- defined here (at consumer) per Go convention.
type Registry interface {
	// Register stores hash(token) -> (user_id, kind) with the given TTL.
	Register(ctx context.Context, userID uuid.UUID, token string, kind store.TokenKind, ttl time.Duration) error

	// Lookup resolves a raw token to its owner and kind.
	// Returns store.ErrTokenNotFound for unknown or expired tokens.
	Lookup(ctx context.Context, token string) (*store.TokenContent, error)

	// DeleteKeys removes registry entries by their stored (hashed) keys.
	DeleteKeys(ctx context.Context, keys []string) error
}

// dummyPasswordHash is a precomputed Argon2id hash for timing attack mitigation.
// When a user doesn't exist, verify against this so both paths take equal time.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=2$YWJjZGVmZ2hpamtsbW5vcA$kC6C6jqLzC0JLlJgXhHbKMhLLpVvLJLLQw/IqT9ZYPU"

// AuthHandler holds dependencies for all auth HTTP handlers and middleware.
// Pepper and signing secret live inside Passwords/Tokens -- immutable
// configuration injected at process start.
type AuthHandler struct {
	PS        Store
	TR        Registry
	Tracker   *LoginAttemptTracker
	Policy    PasswordPolicy
	Passwords *PasswordSettings
	Tokens    *TokenSettings
}

// ValidateEmail checks format and length constraints; returns error message or empty string.
// RFC 5321: min ~5 chars (a@b.c), max 254.
func ValidateEmail(email string) string {
	if email == "" {
		return "No email provided"
	}
	emailLen := len(email)
	if emailLen < 5 {
		return "Email too short!"
	}
	if emailLen > 254 {
		return "Email too long!"
	}
	if _, err := netmail.ParseAddress(email); err != nil {
		return "Invalid email format"
	}
	return ""
}

// SignUp handles POST /sign-up -- name + email + password registration.
// Returns 201 with the user id, 400 for validation errors, 500 for server
// errors. Never reveals whether the email already exists.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var signUpInput struct {
		FamilyName string `json:"family_name"`
		GivenName  string `json:"given_name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&signUpInput); err != nil {
		logWarn(r, "failed to decode sign-up input", "error", err)
		BadRequest(w, r, "error decoding request body")
		return
	}

	if signUpInput.FamilyName == "" || signUpInput.GivenName == "" {
		BadRequest(w, r, "family_name and given_name required")
		return
	}

	if msg := ValidateEmail(signUpInput.Email); msg != "" {
		BadRequest(w, r, msg)
		return
	}

	password, err := h.Policy.Validate(signUpInput.Password)
	if err != nil {
		var policyErr *PolicyError
		if errors.As(err, &policyErr) {
			BadRequest(w, r, policyErr.Message)
			return
		}
		InternalServerError(w, r, err)
		return
	}

	hashedPassword, err := HashPassword(h.Passwords, password)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	userID, err := uuid.NewV7()
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	_, err = h.PS.CreateUser(r.Context(), userID, signUpInput.FamilyName, signUpInput.GivenName, signUpInput.Email, hashedPassword)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Duplicate email -- return same 201 as real registration (no enumeration).
			// userID was generated above but never persisted; caller can't distinguish.
			logInfo(r, "registration attempted with existing email")
		} else {
			logError(r, "failed to create user", "error", err)
			InternalServerError(w, r, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	resp, _ := json.Marshal(map[string]string{"user_id": userID.String()})
	w.Write(resp)
}

// loginResponse is the success body for POST /login. Tokens also travel as
// cookies; body delivery supports non-browser clients.
type loginResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Login handles POST /login -- email + password authentication.
// Returns 200 with a token pair, 401 for bad credentials (unknown email and
// wrong password are indistinguishable), 403 for a locked account, 500 for
// server errors. Argon2id dummy-hash equalises timing when the account
// doesn't exist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginInput struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginInput); err != nil {
		logWarn(r, "failed to decode login input", "error", err)
		BadRequest(w, r, "error decoding request body")
		return
	}

	// The stored hash was made from the normalized registration input, so the
	// candidate gets the same trim before verification.
	password := normalizePassword(loginInput.Password)

	// Invalid email or missing password -- both return generic 401 (no enumeration).
	if msg := ValidateEmail(loginInput.Email); msg != "" {
		Unauthorized(w, r, "invalid credentials")
		return
	}
	if password == "" {
		Unauthorized(w, r, "invalid credentials")
		return
	}

	user, err := h.PS.GetUserByEmail(r.Context(), loginInput.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Run dummy hash to equalise timing with found-user path.
			VerifyPassword(password, h.Passwords.Pepper, dummyPasswordHash)
			logInfo(r, "login attempted with non-existent email")
			Unauthorized(w, r, "invalid credentials")
			return
		}
		InternalServerError(w, r, err)
		return
	}

	// Locked accounts get a distinct signal -- a deliberate usability
	// exception to the don't-leak-account-state rule.
	if !user.Active {
		logInfo(r, "login attempted on locked account", "user_id", user.ID)
		Forbidden(w, r, "account locked")
		return
	}

	valid, err := VerifyPassword(password, h.Passwords.Pepper, user.PasswordHash)
	if err != nil {
		logError(r, "password verification failed", "error", err)
		InternalServerError(w, r, err)
		return
	}
	if !valid {
		// Record the failure even if the client has disconnected -- a
		// cancelled request must not skip the attempt write.
		recordCtx := context.WithoutCancel(r.Context())
		if err := h.Tracker.RecordFailure(recordCtx, user.ID, time.Now()); err != nil {
			logError(r, "failed to record login failure", "error", err, "user_id", user.ID)
		}
		logInfo(r, "login attempted with incorrect password", "user_id", user.ID)
		Unauthorized(w, r, "invalid credentials")
		return
	}

	now := time.Now()
	pair, err := IssueTokenPair(h.Tokens, user.ID, now)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	// The whole "login succeeded" action runs to completion even if the
	// client disconnects mid-response.
	ctx := context.WithoutCancel(r.Context())

	if err := h.TR.Register(ctx, user.ID, pair.Access.Expose(), store.TokenKindAccess, h.Tokens.AccessTTL); err != nil {
		InternalServerError(w, r, err)
		return
	}
	if err := h.TR.Register(ctx, user.ID, pair.Refresh.Expose(), store.TokenKindRefresh, h.Tokens.RefreshTTL); err != nil {
		InternalServerError(w, r, err)
		return
	}

	err = h.PS.RecordLogin(ctx, user.ID, now,
		store.TokenKey(pair.Access.Expose()), pair.AccessExpiresAt,
		store.TokenKey(pair.Refresh.Expose()), pair.RefreshExpiresAt)
	if err != nil {
		// Registry entries from above will lapse by TTL.
		logError(r, "failed to record login", "error", err, "user_id", user.ID)
		InternalServerError(w, r, err)
		return
	}

	SetTokenCookies(w, pair, now)
	logInfo(r, "user logged in successfully", "user_id", user.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp, _ := json.Marshal(loginResponse{
		AccessToken:      pair.Access.Expose(),
		RefreshToken:     pair.Refresh.Expose(),
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
	w.Write(resp)
}

// Logout handles POST /logout -- revokes every token issued to the user.
// Registry keys come from the identity store's reverse index; the registry
// itself cannot enumerate a user's tokens. Clears both cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		logError(r, "logout called without user in context")
		InternalServerError(w, r, errors.New("missing auth context"))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	keys, err := h.PS.ListUserTokenKeys(ctx, user.ID)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	// Registry deletion is fatal: if these entries survive, the tokens stay
	// live. The Postgres rows are only a reverse index and are safe to
	// remove after.
	if err := h.TR.DeleteKeys(ctx, keys); err != nil {
		logError(r, "failed to delete token registry entries", "error", err, "user_id", user.ID)
		InternalServerError(w, r, err)
		return
	}

	if _, err := h.PS.DeleteUserTokens(ctx, user.ID); err != nil {
		logError(r, "failed to delete token rows", "error", err, "user_id", user.ID)
		InternalServerError(w, r, err)
		return
	}

	ClearTokenCookies(w)
	logInfo(r, "user logged out", "user_id", user.ID)
	OK(w, "logged out")
}

// userResponse is the authenticated-identity shape returned by GET /me.
type userResponse struct {
	ID          uuid.UUID  `json:"id"`
	FamilyName  string     `json:"family_name"`
	GivenName   string     `json:"given_name"`
	Email       string     `json:"email"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func userResponseFrom(u *store.User) userResponse {
	return userResponse{
		ID:          u.ID,
		FamilyName:  u.FamilyName,
		GivenName:   u.GivenName,
		Email:       u.Email,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Me handles GET /me -- echoes the authenticated identity.
// The password hash never leaves the store layer's User struct unredacted;
// this response shape omits it entirely.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		logError(r, "me called without user in context")
		InternalServerError(w, r, errors.New("missing auth context"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp, _ := json.Marshal(userResponseFrom(user))
	w.Write(resp)
}

// UpdateMe handles PATCH /me -- partial profile update for the authenticated
// user. Absent fields keep their current values; present fields must be
// valid. A duplicate email is a 400 rather than a silent success: this is an
// authenticated surface, so the enumeration concern from sign-up doesn't
// apply the same way.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		logError(r, "update me called without user in context")
		InternalServerError(w, r, errors.New("missing auth context"))
		return
	}

	var updateInput struct {
		FamilyName *string `json:"family_name"`
		GivenName  *string `json:"given_name"`
		Email      *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateInput); err != nil {
		logWarn(r, "failed to decode profile update input", "error", err)
		BadRequest(w, r, "error decoding request body")
		return
	}

	if updateInput.FamilyName == nil && updateInput.GivenName == nil && updateInput.Email == nil {
		BadRequest(w, r, "no fields to update")
		return
	}
	if updateInput.FamilyName != nil && *updateInput.FamilyName == "" {
		BadRequest(w, r, "family_name must not be empty")
		return
	}
	if updateInput.GivenName != nil && *updateInput.GivenName == "" {
		BadRequest(w, r, "given_name must not be empty")
		return
	}
	if updateInput.Email != nil {
		if msg := ValidateEmail(*updateInput.Email); msg != "" {
			BadRequest(w, r, msg)
			return
		}
	}

	updated, err := h.PS.UpdateUser(r.Context(), user.ID, updateInput.FamilyName, updateInput.GivenName, updateInput.Email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			BadRequest(w, r, "email already in use")
			return
		}
		logError(r, "failed to update user", "error", err, "user_id", user.ID)
		InternalServerError(w, r, err)
		return
	}

	logInfo(r, "user profile updated", "user_id", user.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp, _ := json.Marshal(userResponseFrom(updated))
	w.Write(resp)
}
