// secret.go

// Redacted wrapper for secret strings.
package auth

import "log/slog"

// Secret wraps a sensitive string (raw password, pepper, signing key, token,
// PHC hash) so it cannot leak through fmt verbs or slog attributes. Every
// formatting path prints "[REDACTED]"; the value is only reachable through
// an explicit Expose call.
type Secret struct {
	value string
}

// NewSecret wraps a sensitive string.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose returns the wrapped value. Call sites are the audit surface for
// secret usage -- keep them few.
func (s Secret) Expose() string {
	return s.value
}

// String implements fmt.Stringer with a redacted placeholder.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString redacts %#v output as well.
func (s Secret) GoString() string {
	return "auth.Secret{value:\"[REDACTED]\"}"
}

// LogValue implements slog.LogValuer so a Secret passed as a log attribute
// is redacted.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// MarshalText prevents the raw value from escaping through JSON encoding of
// structs that embed a Secret.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}
