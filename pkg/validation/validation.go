package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Mobile numbers are the 12-digit national format starting with 989.
	phoneRegex = regexp.MustCompile(`^989\d{2}\s*?\d{3}\s*?\d{4}$`)
)

// ValidatePhone validates the mobile number format
func ValidatePhone(phone string) bool {
	if len(phone) != 12 {
		return false
	}
	return phoneRegex.MatchString(phone)
}

// ValidateOtpCode validates the shape of a one-time code
func ValidateOtpCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, char := range code {
		if !unicode.IsDigit(char) {
			return false
		}
	}
	return true
}

// ValidatePassword validates password strength
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > 20 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case strings.ContainsRune("@$!%*?&", char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasNumber && hasSpecial
}

// SanitizeString removes potentially harmful characters
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
