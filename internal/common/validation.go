package common

import (
	"fmt"
	"slices"

	"hrportal/internal/formatters"
)

// ValidateOutputFormat checks format against the configured formats.
// Extension aliases such as "md" and "txt" are accepted.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, formatters.NormalizeFormat(format)) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}
