// Package validation provides recipient contact checks for notification
// delivery. Schema-level input validation lives in pkg/registry.
package validation

import "regexp"

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// SNS wants E.164 but accepts loosely formatted numbers; this catches
	// obviously broken input before the publish call.
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
)

// ValidateEmail reports whether the address is deliverable-looking.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone reports whether the number looks like a dialable phone number.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
