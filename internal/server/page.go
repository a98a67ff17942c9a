package server

import (
	"bytes"
	"embed"
	"html/template"

	apperrors "hrportal/internal/errors"
	"hrportal/internal/formatters"
	"hrportal/internal/types"
	"hrportal/internal/utils"

	"github.com/yuin/goldmark"
)

//go:embed templates/*.html
var pageFS embed.FS

const (
	pageTitle     = "SMU HR: Oasis Portal"
	pageSubtitle  = "Automated Candidate Synergy Evaluation"
	reviewSpinner = "Analyzing candidate clout metrics and synergies..."
	chatSpinner   = "Drafting a passive-aggressive retort..."
)

type pageLink struct {
	Icon  string
	Label string
	URL   string
}

var pageLinks = []pageLink{
	{Icon: "🌐", Label: "SMU Oasis (Mandatory)", URL: "https://oasis.smu.edu.sg"},
	{Icon: "📈", Label: "eBOSS (Ruin Your Life)", URL: "https://boss.smu.edu.sg"},
	{Icon: "💼", Label: "LinkedIn (For Clout)", URL: "https://www.linkedin.com"},
}

type downloadLink struct {
	Label  string
	Format string
}

var downloadLinks = []downloadLink{
	{Label: "Download Performance Review", Format: "txt"},
	{Label: "Markdown", Format: "md"},
	{Label: "JSON", Format: "json"},
}

// pageData is everything the template needs for one render
type pageData struct {
	Title         string
	Subtitle      string
	Links         []pageLink
	Personas      []types.Persona
	Modes         []types.SubmissionMode
	Session       types.SessionView
	ScoreLabel    string
	Flash         string
	KeyBanner     string
	MaxFileSize   string
	Downloads     []downloadLink
	ReviewSpinner string
	ChatSpinner   string
}

var pageFuncs = template.FuncMap{
	"markdown":  renderMarkdown,
	"modeIcon":  modeIcon,
	"isUser":    func(r types.Role) bool { return r == types.RoleUser },
	"modeLabel": func(m types.SubmissionMode) string { return m.Label() },
}

// renderMarkdown turns a model reply into HTML. Raw HTML in the reply is
// dropped and unsafe link schemes are filtered by goldmark's defaults.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func modeIcon(m types.SubmissionMode) string {
	if m == types.ModePDF {
		return "📄"
	}
	return "✍️"
}

func (s *Server) buildPage(view types.SessionView, flash string) pageData {
	data := pageData{
		Title:         pageTitle,
		Subtitle:      pageSubtitle,
		Links:         pageLinks,
		Personas:      types.AllPersonas(),
		Modes:         []types.SubmissionMode{types.ModePDF, types.ModeText},
		Session:       view,
		Flash:         flash,
		Downloads:     downloadLinks,
		ReviewSpinner: reviewSpinner,
		ChatSpinner:   chatSpinner,
	}

	if s.Starter == nil && s.StarterErr != nil {
		data.KeyBanner = apperrors.UserMessage(s.StarterErr)
	}
	if size := s.maxFileSize(); size > 0 {
		data.MaxFileSize = utils.FormatFileSize(size)
	}
	if view.Active {
		data.ScoreLabel = formatters.ScoreLabel(view.Score)
	}
	return data
}
