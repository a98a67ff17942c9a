package common

import (
	"context"
	"strings"

	"hrportal/internal/ai"
	"hrportal/internal/document"
	"hrportal/internal/errors"
	"hrportal/internal/review"
	"hrportal/internal/session"
	"hrportal/internal/types"
	"hrportal/internal/utils"
)

// ReviewRequest is a review submitted from the command line
type ReviewRequest struct {
	Persona       types.Persona
	CandidateFile string
	CandidateText string
	Lore          string
	MaxFileSize   int64
}

// ReviewRunner runs the initial review for CLI commands and prints it
type ReviewRunner struct {
	Starter   ai.ChatStarter
	Assembler *review.Assembler
	Output    *OutputHandler
	Logger    *errors.Logger
}

// LoadCandidate returns the candidate text and the submission mode it came from
func (req ReviewRequest) LoadCandidate(logger *errors.Logger) (string, types.SubmissionMode, error) {
	hasFile := req.CandidateFile != ""
	hasText := strings.TrimSpace(req.CandidateText) != ""

	switch {
	case hasFile && hasText:
		return "", "", errors.NewValidationError(errors.ErrCodeInvalidMode,
			"Provide either a candidate file or text, not both", nil)
	case hasFile:
		text, err := document.ReadCandidateFile(req.CandidateFile, req.MaxFileSize, logger)
		if err != nil {
			return "", "", err
		}
		mode := types.ModeText
		if utils.IsPDFFile(req.CandidateFile) {
			mode = types.ModePDF
		}
		return text, mode, nil
	case hasText:
		return req.CandidateText, types.ModeText, nil
	default:
		return "", "", errors.NewValidationError(errors.ErrCodeEmptyCandidateText,
			"No candidate text provided. Use --file or --text.", nil)
	}
}

// Run starts conv with the request and writes the review in the configured format
func (r *ReviewRunner) Run(ctx context.Context, conv *session.Conversation, req ReviewRequest, cmdConfig CommandConfig) (types.ReviewResult, error) {
	text, mode, err := req.LoadCandidate(r.Logger)
	if err != nil {
		return types.ReviewResult{}, err
	}

	if r.Logger != nil {
		r.Logger.Info("Running performance review",
			"persona", req.Persona,
			"mode", mode,
			"candidate_length", len(text))
	}

	result, err := conv.Start(ctx, r.Starter, r.Assembler, session.Submission{
		Persona:       req.Persona,
		Mode:          mode,
		CandidateText: text,
		Lore:          req.Lore,
	})
	if err != nil {
		return types.ReviewResult{}, err
	}

	view := conv.Snapshot()
	if r.Logger != nil && view.Usage != nil {
		r.Logger.Info("AI token usage",
			"input_tokens", view.Usage.InputTokens,
			"output_tokens", view.Usage.OutputTokens,
			"total_tokens", view.Usage.TotalTokens)
	}

	doc := types.ReviewDocument{
		Persona: req.Persona,
		Model:   view.Model,
		Score:   result.Score,
		Review:  result.CleanedText,
	}
	if err := r.Output.Write(doc, cmdConfig); err != nil {
		return result, err
	}
	return result, nil
}
