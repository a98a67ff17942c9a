package common

import (
	"fmt"
	"io"
	"os"

	"hrportal/internal/errors"
	"hrportal/internal/formatters"
	"hrportal/internal/types"
	"hrportal/internal/utils"
)

// CommandConfig holds the output settings shared by CLI commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// ResolvedFormat picks the explicit format, then one implied by the output
// file extension, then fallback
func (c CommandConfig) ResolvedFormat(fallback string) string {
	if c.OutputFormat != "" {
		return formatters.NormalizeFormat(c.OutputFormat)
	}
	switch utils.GetFileExtension(c.OutputFile) {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".txt", ".text":
		return "text"
	}
	return formatters.NormalizeFormat(fallback)
}

// OutputHandler renders review documents to stdout or a file
type OutputHandler struct {
	registry *formatters.FormatterRegistry
	logger   *errors.Logger
	stdout   io.Writer
}

// NewOutputHandler creates an output handler writing to os.Stdout
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		registry: formatters.GlobalRegistry,
		logger:   logger,
		stdout:   os.Stdout,
	}
}

// WithWriter sends stdout output to w instead
func (oh *OutputHandler) WithWriter(w io.Writer) *OutputHandler {
	oh.stdout = w
	return oh
}

// Write formats doc and writes it where config points
func (oh *OutputHandler) Write(doc types.ReviewDocument, config CommandConfig) error {
	if config.OutputFile != "" {
		if err := utils.ValidateOutputFile(config.OutputFile); err != nil {
			return errors.NewValidationError("INVALID_OUTPUT_FILE",
				fmt.Sprintf("Invalid output file: %s", config.OutputFile), err)
		}
	}

	format := config.ResolvedFormat("text")
	output, err := oh.registry.Format(doc, format)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", format), err)
	}

	if config.OutputFile == "" {
		_, err := fmt.Fprintln(oh.stdout, output)
		return err
	}

	if err := writeOutputFile(config.OutputFile, output); err != nil {
		return err
	}
	if oh.logger != nil {
		oh.logger.Info("Review written", "file", config.OutputFile, "format", format, "bytes", len(output))
	}
	return nil
}

// writeOutputFile expects the parent directory to exist already
func writeOutputFile(filename, content string) error {
	if err := os.WriteFile(filename, []byte(content+"\n"), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
