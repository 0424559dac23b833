// policy_test.go

// unit tests for PasswordPolicy.Validate and helpers.
package auth

import (
	"errors"
	"testing"
)

// testPolicy mirrors the default configuration values.
func testPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		MaxLength:        128,
		MaxSameChars:     3,
		MaxRepeatedChars: 2,
	}
}

// assertRule checks Validate rejected the candidate with the expected rule.
func assertRule(t *testing.T, err error, rule PolicyRule) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %q violation, got nil error", rule)
	}
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *PolicyError, got %T: %v", err, err)
	}
	if policyErr.Rule != rule {
		t.Errorf("rule: expected %q, got %q (message %q)", rule, policyErr.Rule, policyErr.Message)
	}
}

func TestValidate(t *testing.T) {
	p := testPolicy()

	t.Run("valid password passes unchanged", func(t *testing.T) {
		got, err := p.Validate("Str0ng!pass")
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if got != "Str0ng!pass" {
			t.Errorf("expected password returned unchanged, got %q", got)
		}
	})

	t.Run("too short", func(t *testing.T) {
		_, err := p.Validate("S0.a")
		assertRule(t, err, RuleLength)
	})

	t.Run("too long", func(t *testing.T) {
		long := make([]byte, 129)
		for i := range long {
			// Cycle through a charset that satisfies every class rule so
			// only length can fail.
			long[i] = "Aa1!Bb2@Cc3#Dd4$Ee5%Ff6^Gg7&Hh8*"[i%32]
		}
		_, err := p.Validate(string(long))
		assertRule(t, err, RuleLength)
	})

	t.Run("boundary lengths accepted", func(t *testing.T) {
		if _, err := p.Validate("Aa1!bcde"); err != nil {
			t.Errorf("8-char password should pass: %v", err)
		}
		// 64 distinct characters, two occurrences each: no rule besides
		// length is in play at exactly 128.
		const charset = "Aa1!Bb2@Cc3#Dd4$Ee5%Ff6^Gg7&Hh8*Ii9(Jj0)Kk-_Ll+=Mm[]Nn{}Oo<>Pp,."
		max := make([]byte, 128)
		for i := range max {
			max[i] = charset[i%64]
		}
		if _, err := p.Validate(string(max)); err != nil {
			t.Errorf("128-char password should pass: %v", err)
		}
	})

	t.Run("missing uppercase", func(t *testing.T) {
		_, err := p.Validate("str0ng!pass")
		assertRule(t, err, RuleUppercase)
	})

	t.Run("missing lowercase", func(t *testing.T) {
		_, err := p.Validate("STR0NG!PASS")
		assertRule(t, err, RuleLowercase)
	})

	t.Run("missing digit", func(t *testing.T) {
		_, err := p.Validate("Strong!pass")
		assertRule(t, err, RuleDigit)
	})

	t.Run("missing symbol", func(t *testing.T) {
		_, err := p.Validate("Str0ngpass")
		assertRule(t, err, RuleSymbol)
	})

	t.Run("fail-fast order reports length before classes", func(t *testing.T) {
		// Violates length AND every class rule; length must win.
		_, err := p.Validate("aaaa")
		assertRule(t, err, RuleLength)
	})

	t.Run("too many of one character total", func(t *testing.T) {
		// Four 's' characters spread out: within the consecutive-run limit
		// but over MaxSameChars.
		_, err := p.Validate("S0!sassysas")
		assertRule(t, err, RuleIdentical)
	})

	t.Run("exactly MaxSameChars occurrences allowed", func(t *testing.T) {
		if _, err := p.Validate("S0!sassy"); err != nil {
			t.Errorf("three 's' characters should pass: %v", err)
		}
	})

	t.Run("consecutive run over limit", func(t *testing.T) {
		_, err := p.Validate("Str0ng!paaass")
		assertRule(t, err, RuleRepeated)
	})

	t.Run("exactly MaxRepeatedChars consecutive allowed", func(t *testing.T) {
		if _, err := p.Validate("Str0ng!paass"); err != nil {
			t.Errorf("run of two should pass: %v", err)
		}
	})

	t.Run("custom symbol set", func(t *testing.T) {
		custom := testPolicy()
		custom.Symbols = "#"
		if _, err := custom.Validate("Str0ng#pass"); err != nil {
			t.Errorf("'#' should satisfy custom set: %v", err)
		}
		_, err := custom.Validate("Str0ng!pass")
		assertRule(t, err, RuleSymbol)
	})
}

func TestNormalizePassword(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		if got := normalizePassword("  Str0ng!pass\t"); got != "Str0ng!pass" {
			t.Errorf("expected trimmed, got %q", got)
		}
	})

	t.Run("interior whitespace preserved", func(t *testing.T) {
		if got := normalizePassword("Str0ng! pass"); got != "Str0ng! pass" {
			t.Errorf("interior space must survive, got %q", got)
		}
	})

	t.Run("no whitespace passes through", func(t *testing.T) {
		if got := normalizePassword("Str0ng!pass"); got != "Str0ng!pass" {
			t.Errorf("expected unchanged, got %q", got)
		}
	})
}

func TestHasRepeatingChars(t *testing.T) {
	cases := []struct {
		s    string
		n    int
		want bool
	}{
		{"aaa", 3, true},
		{"aab", 3, false},
		{"abbba", 3, true},
		{"aa", 3, false},
		{"", 3, false},
		{"abcabcabc", 2, false},
		{"abccd", 2, true},
	}
	for _, tc := range cases {
		if got := hasRepeatingChars(tc.s, tc.n); got != tc.want {
			t.Errorf("hasRepeatingChars(%q, %d): expected %v, got %v", tc.s, tc.n, tc.want, got)
		}
	}
}
