package formatters

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"hrportal/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ReviewDocument", &ReviewTextFormatter{})
	registry.RegisterFormatter("markdown", "ReviewDocument", &ReviewMarkdownFormatter{})
	registry.RegisterFormatter("text", "SessionView", &TranscriptTextFormatter{})
	registry.RegisterFormatter("markdown", "SessionView", &TranscriptMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	format = NormalizeFormat(format)
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

// NormalizeFormat maps file-extension style names onto format names
func NormalizeFormat(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "txt", "text":
		return "text"
	case "md", "markdown":
		return "markdown"
	default:
		return f
	}
}

// Download describes how a formatted review is offered as a file
type Download struct {
	Filename    string
	ContentType string
}

// DownloadFor returns the attachment name and content type for format
func DownloadFor(format string) Download {
	switch NormalizeFormat(format) {
	case "markdown":
		return Download{Filename: "performance_review.md", ContentType: "text/markdown; charset=utf-8"}
	case "json":
		return Download{Filename: "performance_review.json", ContentType: "application/json"}
	default:
		return Download{Filename: "performance_review.txt", ContentType: "text/plain; charset=utf-8"}
	}
}

// TranscriptDownloadFor names the full transcript download for format
func TranscriptDownloadFor(format string) Download {
	d := DownloadFor(format)
	d.Filename = "evaluation_transcript" + path.Ext(d.Filename)
	return d
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ReviewDocument, *types.ReviewDocument:
		return "ReviewDocument"
	case types.SessionView, *types.SessionView:
		return "SessionView"
	default:
		return "any"
	}
}

func asReview(data any) (types.ReviewDocument, error) {
	switch v := data.(type) {
	case types.ReviewDocument:
		return v, nil
	case *types.ReviewDocument:
		if v != nil {
			return *v, nil
		}
	}
	return types.ReviewDocument{}, fmt.Errorf("expected ReviewDocument, got %T", data)
}

func asSession(data any) (types.SessionView, error) {
	switch v := data.(type) {
	case types.SessionView:
		return v, nil
	case *types.SessionView:
		if v != nil {
			return *v, nil
		}
	}
	return types.SessionView{}, fmt.Errorf("expected SessionView, got %T", data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ReviewTextFormatter writes the review body exactly as shown on the page
type ReviewTextFormatter struct{}

func (rtf *ReviewTextFormatter) Format(data any) (string, error) {
	doc, err := asReview(data)
	if err != nil {
		return "", err
	}
	return doc.Review, nil
}

func (rtf *ReviewTextFormatter) SupportedType() string {
	return "ReviewDocument"
}

// ReviewMarkdownFormatter wraps the review with persona and score
type ReviewMarkdownFormatter struct{}

func (rmf *ReviewMarkdownFormatter) Format(data any) (string, error) {
	doc, err := asReview(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Performance Review\n\n")
	fmt.Fprintf(&output, "**Evaluator:** %s\n\n", doc.Persona)
	fmt.Fprintf(&output, "**Toxicity Score:** %s\n\n", ScoreLabel(doc.Score))
	if doc.Model != "" {
		fmt.Fprintf(&output, "**Model:** %s\n\n", doc.Model)
	}
	output.WriteString("---\n\n")
	output.WriteString(doc.Review)
	output.WriteString("\n")
	return output.String(), nil
}

func (rmf *ReviewMarkdownFormatter) SupportedType() string {
	return "ReviewDocument"
}

// TranscriptTextFormatter renders the whole conversation as plain text
type TranscriptTextFormatter struct{}

func (ttf *TranscriptTextFormatter) Format(data any) (string, error) {
	view, err := asSession(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("=== PERFORMANCE REVIEW TRANSCRIPT ===\n")
	if view.Active {
		fmt.Fprintf(&output, "Evaluator: %s\n", view.Persona)
		fmt.Fprintf(&output, "Toxicity Score: %s\n", ScoreLabel(view.Score))
	}
	output.WriteString("\n")

	for _, turn := range view.Turns {
		fmt.Fprintf(&output, "[%s]\n%s\n\n", speaker(turn.Role, view.Persona), turn.Content)
	}
	return output.String(), nil
}

func (ttf *TranscriptTextFormatter) SupportedType() string {
	return "SessionView"
}

// TranscriptMarkdownFormatter renders the whole conversation as markdown
type TranscriptMarkdownFormatter struct{}

func (tmf *TranscriptMarkdownFormatter) Format(data any) (string, error) {
	view, err := asSession(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Live Manager Evaluation\n\n")
	if view.Active {
		fmt.Fprintf(&output, "| Evaluator | Toxicity Score |\n|---|---|\n| %s | %s |\n\n",
			view.Persona, ScoreLabel(view.Score))
	}

	for _, turn := range view.Turns {
		fmt.Fprintf(&output, "### %s\n\n%s\n\n", speaker(turn.Role, view.Persona), turn.Content)
	}
	return output.String(), nil
}

func (tmf *TranscriptMarkdownFormatter) SupportedType() string {
	return "SessionView"
}

// ScoreLabel renders a score for display, N/A when the marker was missing
func ScoreLabel(score string) string {
	if score == "" || score == types.ScoreUnavailable {
		return "N/A"
	}
	return score + "/100"
}

func speaker(role types.Role, persona types.Persona) string {
	if role == types.RoleUser {
		return "Candidate"
	}
	if persona != "" {
		return string(persona)
	}
	return "Manager"
}
