package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Resource ids (service names) are alphanumeric with hyphens and
	// underscores, 1-255 chars, matching ECS service-name rules.
	resourceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,254}$`)
)

// SanitizeString trims whitespace and strips control characters.
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateResourceID checks that a resource id is usable as a service name
// and safe to embed in state-store keys and log fields.
func ValidateResourceID(id string) error {
	id = SanitizeString(id)

	if id == "" {
		return errors.New("resource id cannot be empty")
	}

	if !resourceIDRegex.MatchString(id) {
		return errors.New("resource id must start with alphanumeric and contain only letters, numbers, hyphens, and underscores")
	}

	return nil
}

// ValidateWebhookURL checks that a notification webhook is an absolute
// https URL.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("webhook must be a valid URL")
	}

	if u.Scheme != "https" {
		return errors.New("webhook must use https")
	}

	if u.Host == "" {
		return errors.New("webhook must include a host")
	}

	return nil
}
