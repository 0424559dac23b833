// password.go

// Peppered Argon2id password hashing and verification.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonSaltLen = 16
	argonKeyLen  = uint32(32)
)

// PasswordSettings carries the process-wide pepper and Argon2id cost
// parameters. Loaded once at startup and passed by reference -- never a
// singleton.
type PasswordSettings struct {
	Pepper      Secret
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// sprinklePepper interleaves the pepper and password rune by rune
// (pepper[0], password[0], pepper[1], password[1], ...) up to the shorter
// string's length, then appends the longer string's tail. The peppered
// string never leaves this package; hash and verify both go through here,
// which is the only compatibility requirement the mixing function has.
func sprinklePepper(pepper Secret, password string) string {
	p := []rune(pepper.Expose())
	w := []rune(password)

	var b strings.Builder
	b.Grow(len(pepper.Expose()) + len(password))
	n := min(len(p), len(w))
	for i := 0; i < n; i++ {
		b.WriteRune(p[i])
		b.WriteRune(w[i])
	}
	b.WriteString(string(p[n:]))
	b.WriteString(string(w[n:]))
	return b.String()
}

// HashPassword peppers the password and returns a PHC-formatted Argon2id
// hash. Format: $argon2id$v=19$m=65536,t=3,p=2$<base64 salt>$<base64 hash>
// A fresh random salt is generated per call.
func HashPassword(settings *PasswordSettings, password string) (string, error) {
	// Gen 16-byte random salt
	salt := make([]byte, argonSaltLen)
	_, err := rand.Read(salt)
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	peppered := sprinklePepper(settings.Pepper, password)

	// Derive hash
	hash := argon2.IDKey([]byte(peppered), salt,
		settings.Iterations, settings.MemoryKiB, settings.Parallelism, argonKeyLen)

	// Encode as PHC format string
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		settings.MemoryKiB, settings.Iterations, settings.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// VerifyPassword peppers the candidate and checks it against a stored
// Argon2id PHC hash. Params are extracted from the stored hash so old
// passwords verify after cost parameter changes. A wrong password returns
// (false, nil); a malformed stored hash returns an error -- the two must
// never be conflated.
// Uses constant-time comparison to prevent timing attacks.
func VerifyPassword(password string, pepper Secret, encodedHash string) (bool, error) {
	// Split PHC string
	// Format: $argon2id$v=19$m=65536,t=3,p=2$<base64 salt>$<base64 hash>
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing hash version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		return false, fmt.Errorf("parsing hash params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}

	// Re-derive with the stored params and the peppered candidate
	peppered := sprinklePepper(pepper, password)
	hash := argon2.IDKey([]byte(peppered), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Compare pwds w/ constant time for timing attacks
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1, nil
}
