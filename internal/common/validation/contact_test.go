// internal/common/validation/contact_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"employee@acme.example.com",
		"first.last+tag@wellness.example.co",
	}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"no-at-sign.example.com",
		"missing@tld",
		"@example.com",
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), email)
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{
		"+14155552671",
		"+1 (415) 555-2671",
		"04155552671",
	}
	for _, phone := range valid {
		assert.True(t, ValidatePhone(phone), phone)
	}

	invalid := []string{
		"",
		"555-1234",
		"not a number",
	}
	for _, phone := range invalid {
		assert.False(t, ValidatePhone(phone), phone)
	}
}
