// policy.go

// Settings-driven password complexity validation.
package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// defaultSymbols defines which characters satisfy the symbol rule.
// All printable non-alphanumeric ASCII punctuation and symbols.
const defaultSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// PolicyRule identifies which password rule a candidate violated.
type PolicyRule string

const (
	RuleLength    PolicyRule = "length"
	RuleUppercase PolicyRule = "uppercase"
	RuleLowercase PolicyRule = "lowercase"
	RuleDigit     PolicyRule = "digit"
	RuleSymbol    PolicyRule = "symbol"
	RuleIdentical PolicyRule = "identical characters"
	RuleRepeated  PolicyRule = "repeated characters"
)

// PolicyError reports the first rule a candidate password violated.
// The message never contains the password itself.
type PolicyError struct {
	Rule    PolicyRule
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

// PasswordPolicy defines password complexity rules applied at registration.
//
// All parameters come from configuration, not constants -- the rules evolved
// from fixed values to settings-driven ones and must stay tunable.
// MinLength/MaxLength bound the rune count inclusively. Symbols is the set
// of characters satisfying the symbol rule; empty falls back to
// defaultSymbols. MaxSameChars caps total occurrences of any one character.
// MaxRepeatedChars caps identical consecutive characters -- a run longer
// than it is rejected even when the total count is within MaxSameChars.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	Symbols          string
	MaxSameChars     int
	MaxRepeatedChars int
}

// Validate checks a raw candidate against every rule, fail-fast: the first
// violated rule wins, in a fixed order (length, uppercase, lowercase, digit,
// symbol, identical, repeated) for deterministic behavior. Returns the
// normalized password: leading/trailing whitespace is trimmed only when
// present, interior whitespace is preserved.
func (p PasswordPolicy) Validate(raw string) (string, error) {
	password := normalizePassword(raw)

	symbols := p.Symbols
	if symbols == "" {
		symbols = defaultSymbols
	}

	if n := utf8.RuneCountInString(password); n < p.MinLength || n > p.MaxLength {
		return "", &PolicyError{
			Rule:    RuleLength,
			Message: fmt.Sprintf("Password must be between %d and %d characters", p.MinLength, p.MaxLength),
		}
	}

	var seenUpper, seenLower, seenDigit, seenSymbol bool
	counts := make(map[rune]int)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			seenUpper = true
		case unicode.IsLower(r):
			seenLower = true
		case unicode.IsDigit(r):
			seenDigit = true
		case strings.ContainsRune(symbols, r):
			seenSymbol = true
		}
		counts[r]++
	}

	if !seenUpper {
		return "", &PolicyError{Rule: RuleUppercase, Message: "Password must contain at least one uppercase letter"}
	}
	if !seenLower {
		return "", &PolicyError{Rule: RuleLowercase, Message: "Password must contain at least one lowercase letter"}
	}
	if !seenDigit {
		return "", &PolicyError{Rule: RuleDigit, Message: "Password must contain at least one digit"}
	}
	if !seenSymbol {
		return "", &PolicyError{Rule: RuleSymbol, Message: "Password must contain at least one symbol"}
	}

	for _, n := range counts {
		if n > p.MaxSameChars {
			return "", &PolicyError{
				Rule:    RuleIdentical,
				Message: fmt.Sprintf("Password must not use any single character more than %d times", p.MaxSameChars),
			}
		}
	}

	if hasRepeatingChars(password, p.MaxRepeatedChars+1) {
		return "", &PolicyError{
			Rule:    RuleRepeated,
			Message: fmt.Sprintf("Password must not repeat a character more than %d times in a row", p.MaxRepeatedChars),
		}
	}

	return password, nil
}

// normalizePassword trims leading/trailing whitespace only when the raw
// input starts or ends with whitespace; interior whitespace is untouched.
func normalizePassword(raw string) string {
	first, _ := utf8.DecodeRuneInString(raw)
	last, _ := utf8.DecodeLastRuneInString(raw)
	if unicode.IsSpace(first) || unicode.IsSpace(last) {
		return strings.TrimSpace(raw)
	}
	return raw
}

// hasRepeatingChars reports whether s contains a run of n or more identical
// consecutive runes. Run-length, not total count: "aab" has no run of 3 even
// though repeated 'a's exist elsewhere in "abbba".
func hasRepeatingChars(s string, n int) bool {
	if n <= 1 {
		return s != ""
	}
	var prev rune
	run := 0
	for _, r := range s {
		if run > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
