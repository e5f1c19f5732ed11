package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 128
	MinPasswordScore  = 3
)

// PasswordPolicyError lists every rule a candidate password failed.
type PasswordPolicyError struct {
	Reasons []string
}

func (e *PasswordPolicyError) Error() string {
	return "password policy: " + strings.Join(e.Reasons, "; ")
}

// ValidatePassword checks password against the account password policy and
// returns one human-readable reason per failed rule. userInputs (email,
// name) are penalised by the strength estimator.
func ValidatePassword(password string, userInputs ...string) []string {
	var reasons []string

	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		reasons = append(reasons, fmt.Sprintf("must be at least %d characters long", MinPasswordLength))
	}
	if length > MaxPasswordLength {
		reasons = append(reasons, fmt.Sprintf("must be at most %d characters long", MaxPasswordLength))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			special = true
		}
	}
	if !upper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if !lower {
		reasons = append(reasons, "must contain a lowercase letter")
	}
	if !digit {
		reasons = append(reasons, "must contain a digit")
	}
	if !special {
		reasons = append(reasons, "must contain a special character")
	}

	// over-long input is already rejected, skip the estimator for it
	if length > 0 && length <= MaxPasswordLength {
		if zxcvbn.PasswordStrength(password, userInputs).Score < MinPasswordScore {
			reasons = append(reasons, "is too easy to guess")
		}
	}

	return reasons
}

// CheckPassword wraps ValidatePassword into an error.
func CheckPassword(password string, userInputs ...string) error {
	if reasons := ValidatePassword(password, userInputs...); len(reasons) > 0 {
		return &PasswordPolicyError{Reasons: reasons}
	}
	return nil
}
