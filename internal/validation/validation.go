package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// DrillFileExt is the only extension accepted for drill uploads
const DrillFileExt = ".tsv"

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateOptionalEmail accepts a blank address or a valid one
func ValidateOptionalEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	return ValidateEmail(email)
}

// IsDrillFilename reports whether name carries the drill file extension,
// compared case-insensitively
func IsDrillFilename(name string) bool {
	return strings.EqualFold(filepath.Ext(name), DrillFileExt)
}
