// secret_test.go

// unit tests for the Secret redaction wrapper.
package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestSecret(t *testing.T) {
	const sensitive = "hunter2-pepper-value"
	s := NewSecret(sensitive)

	t.Run("Expose returns the raw value", func(t *testing.T) {
		if s.Expose() != sensitive {
			t.Error("Expose must return the wrapped value")
		}
	})

	t.Run("fmt verbs are redacted", func(t *testing.T) {
		for _, formatted := range []string{
			fmt.Sprintf("%s", s),
			fmt.Sprintf("%v", s),
			fmt.Sprintf("%+v", s),
			fmt.Sprintf("%#v", s),
		} {
			if strings.Contains(formatted, sensitive) {
				t.Errorf("secret leaked through formatting: %q", formatted)
			}
			if !strings.Contains(formatted, "[REDACTED]") {
				t.Errorf("expected redaction marker, got %q", formatted)
			}
		}
	})

	t.Run("slog attribute is redacted", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		logger.Info("config loaded", "pepper", s)

		if strings.Contains(buf.String(), sensitive) {
			t.Errorf("secret leaked into log output: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "[REDACTED]") {
			t.Errorf("expected redacted attribute, got %s", buf.String())
		}
	})

	t.Run("json marshal is redacted", func(t *testing.T) {
		payload, err := json.Marshal(struct{ Pepper Secret }{s})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(payload), sensitive) {
			t.Errorf("secret leaked through JSON: %s", payload)
		}
	})
}
