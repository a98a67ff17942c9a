package common

import (
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"text", "markdown", "json"}

	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectError      bool
		expectedError    string
	}{
		{name: "text", format: "text", supportedFormats: supported},
		{name: "markdown", format: "markdown", supportedFormats: supported},
		{name: "json", format: "json", supportedFormats: supported},
		{name: "txt alias", format: "txt", supportedFormats: supported},
		{name: "md alias", format: "md", supportedFormats: supported},
		{name: "empty means text", format: "", supportedFormats: supported},
		{name: "uppercase alias", format: "MD", supportedFormats: supported},
		{
			name:             "xml rejected",
			format:           "xml",
			supportedFormats: supported,
			expectError:      true,
			expectedError:    "unsupported output format 'xml'. Supported formats: [text markdown json]",
		},
		{
			name:             "text not configured",
			format:           "txt",
			supportedFormats: []string{"json"},
			expectError:      true,
			expectedError:    "unsupported output format 'txt'. Supported formats: [json]",
		},
		{name: "no restrictions", format: "xml", supportedFormats: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				if tt.expectedError != "" && err.Error() != tt.expectedError {
					t.Errorf("Expected error '%s', got '%s'", tt.expectedError, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"text", "markdown", "json"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("md", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}
