// password_test.go

// unit tests for sprinklePepper, HashPassword, and VerifyPassword.
package auth

import (
	"strings"
	"testing"
)

// testPasswordSettings uses low Argon2id costs so the suite stays fast.
// Verification extracts params from the stored hash, so cheap test hashes
// verify the same way production ones do.
func testPasswordSettings() *PasswordSettings {
	return &PasswordSettings{
		Pepper:      NewSecret("pepper"),
		MemoryKiB:   1024,
		Iterations:  1,
		Parallelism: 1,
	}
}

// --- sprinklePepper ---

func TestSprinklePepper(t *testing.T) {
	cases := []struct {
		name     string
		pepper   string
		password string
		want     string
	}{
		{"password shorter than pepper", "pepper", "abcde", "paebpcpdeer"},
		{"password longer than pepper", "pepper", "abcdefg", "paebpcpdeerfg"},
		{"equal lengths", "pep", "abc", "paebpc"},
		{"empty pepper", "", "abc", "abc"},
		{"empty password", "pep", "", "pep"},
		{"multibyte runes interleave per rune", "ü", "ab", "üab"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sprinklePepper(NewSecret(tc.pepper), tc.password)
			if got != tc.want {
				t.Errorf("sprinklePepper(%q, %q): expected %q, got %q", tc.pepper, tc.password, tc.want, got)
			}
		})
	}
}

// --- HashPassword ---

func TestHashPassword(t *testing.T) {
	settings := testPasswordSettings()

	t.Run("output matches PHC format", func(t *testing.T) {
		hash, err := HashPassword(settings, "correcthorsebatterystaple")
		if err != nil {
			t.Fatalf("HashPassword returned error: %v", err)
		}

		// PHC format: $argon2id$v=19$m=1024,t=1,p=1$<salt>$<hash>
		parts := strings.Split(hash, "$")
		if len(parts) != 6 {
			t.Fatalf("expected 6 parts, got %d: %q", len(parts), hash)
		}
		if parts[1] != "argon2id" {
			t.Errorf("algorithm: expected argon2id, got %q", parts[1])
		}
		if parts[2] != "v=19" {
			t.Errorf("version: expected v=19, got %q", parts[2])
		}
		if parts[3] != "m=1024,t=1,p=1" {
			t.Errorf("params: expected m=1024,t=1,p=1, got %q", parts[3])
		}
	})

	// Make sure same password returns diff hashes w/ salts
	t.Run("unique salts per call", func(t *testing.T) {
		h1, err := HashPassword(settings, "same-password")
		if err != nil {
			t.Fatalf("first hash: %v", err)
		}
		h2, err := HashPassword(settings, "same-password")
		if err != nil {
			t.Fatalf("second hash: %v", err)
		}
		if h1 == h2 {
			t.Error("two hashes of the same password should differ (unique salts)")
		}
	})
}

// --- VerifyPassword ---

func TestVerifyPassword(t *testing.T) {
	settings := testPasswordSettings()

	t.Run("correct password verifies", func(t *testing.T) {
		password := "correcthorsebatterystaple"
		hash, err := HashPassword(settings, password)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}

		match, err := VerifyPassword(password, settings.Pepper, hash)
		if err != nil {
			t.Fatalf("VerifyPassword: %v", err)
		}
		if !match {
			t.Error("correct password should verify")
		}
	})

	t.Run("wrong password rejected without error", func(t *testing.T) {
		hash, err := HashPassword(settings, "real-password")
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}

		match, err := VerifyPassword("wrong-password", settings.Pepper, hash)
		if err != nil {
			t.Fatalf("wrong password should not error: %v", err)
		}
		if match {
			t.Error("wrong password should not verify")
		}
	})

	t.Run("wrong pepper rejected without error", func(t *testing.T) {
		hash, err := HashPassword(settings, "real-password")
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}

		match, err := VerifyPassword("real-password", NewSecret("other-pepper"), hash)
		if err != nil {
			t.Fatalf("wrong pepper should not error: %v", err)
		}
		if match {
			t.Error("hash must not verify under a different pepper")
		}
	})

	t.Run("params read from stored hash", func(t *testing.T) {
		hash, err := HashPassword(settings, "real-password")
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}

		// Verify with different settings in hand; only the pepper matters.
		bumped := &PasswordSettings{
			Pepper:      settings.Pepper,
			MemoryKiB:   settings.MemoryKiB * 2,
			Iterations:  settings.Iterations + 1,
			Parallelism: settings.Parallelism,
		}
		match, err := VerifyPassword("real-password", bumped.Pepper, hash)
		if err != nil {
			t.Fatalf("VerifyPassword: %v", err)
		}
		if !match {
			t.Error("hash should verify after cost parameter changes")
		}
	})

	t.Run("malformed hash errors", func(t *testing.T) {
		malformed := []string{
			"",
			"not-a-phc-string",
			"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
			"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$!!!",
		}
		for _, hash := range malformed {
			if _, err := VerifyPassword("whatever", settings.Pepper, hash); err == nil {
				t.Errorf("expected error for malformed hash %q", hash)
			}
		}
	})
}
