// token.go

// HMAC-signed access/refresh token issuance and verification.
//
// Tokens carry exactly two claims: subject (user id) and expiration. Access
// and refresh tokens are structurally identical -- only the registry's
// recorded kind tells them apart. Signature validity is necessary but not
// sufficient; liveness is decided by the token registry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by VerifyToken for any token that fails
// verification: bad signature, wrong signing method, missing or malformed
// subject, or expired. Callers map it to 401.
var ErrInvalidToken = errors.New("invalid token")

// TokenSettings carries the process-wide signing secret and the validity
// windows for each token kind. Loaded once at startup.
type TokenSettings struct {
	Secret     Secret
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claim is what a verified token decodes to.
type Claim struct {
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// TokenPair is the result of a successful login: one access and one refresh
// token with their expiration instants.
type TokenPair struct {
	Access           Secret
	Refresh          Secret
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// IssueTokenPair signs an access and a refresh token for the user, expiring
// at now+AccessTTL and now+RefreshTTL respectively.
func IssueTokenPair(settings *TokenSettings, userID uuid.UUID, now time.Time) (*TokenPair, error) {
	accessExpiresAt := now.Add(settings.AccessTTL)
	refreshExpiresAt := now.Add(settings.RefreshTTL)

	access, err := signToken(userID, accessExpiresAt, settings.Secret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := signToken(userID, refreshExpiresAt, settings.Secret)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &TokenPair{
		Access:           NewSecret(access),
		Refresh:          NewSecret(refresh),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// signToken builds an HS384 JWT whose claims are exactly sub and exp.
func signToken(userID uuid.UUID, expiresAt time.Time, secret Secret) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(secret.Expose()))
}

// VerifyToken checks the signature before trusting any claim value, then
// decodes subject and expiration. Expiry is checked here too, even though
// registry TTL is the liveness authority -- redundant but safe, so a
// registry outage or clock skew cannot extend a token's effective lifetime.
// All failure modes wrap ErrInvalidToken.
func VerifyToken(token string, secret Secret) (*Claim, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			return []byte(secret.Expose()), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS384.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing from claims", ErrInvalidToken)
	}
	userID, err := uuid.FromString(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}

	return &Claim{
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
