package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"hrportal/internal/ai"
	apperrors "hrportal/internal/errors"
	"hrportal/internal/document"
	"hrportal/internal/formatters"
	"hrportal/internal/observability"
	"hrportal/internal/session"
	"hrportal/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "hrportal.web"

// multipartMemory is how much of an upload is kept in memory before spilling to disk
const multipartMemory = 8 << 20

// pageHandler renders the page from the caller's session snapshot
func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	conv := s.conversation(w, r)
	data := s.buildPage(conv.Snapshot(), s.popFlash(w, r))

	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "page.html", data); err != nil {
		s.Logger.LogError(err, "Failed to render page", "session", conv.ID())
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// createReviewHandler runs the initial submission and redirects back to the page
func (s *Server) createReviewHandler(om *observability.ObservabilityManager, starter ai.ChatStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "web.review")
		defer span.End()

		conv := s.conversation(w, r)
		defer http.Redirect(w, r, "/", http.StatusSeeOther)

		if starter == nil {
			s.Logger.Warn("Review submitted without an API key", "session", conv.ID())
			return
		}

		sub, err := s.parseSubmission(r)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid submission")
			s.setFlash(w, apperrors.UserMessage(err))
			return
		}

		span.SetAttributes(
			attribute.String("review.persona", string(sub.Persona)),
			attribute.String("review.mode", string(sub.Mode)),
			attribute.Int("review.candidate_length", len(sub.CandidateText)),
		)

		result, err := conv.Start(ctx, starter, s.Assembler, sub)
		om.GetMetrics().RecordReview(ctx, sub.Persona, sub.Mode, &result, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "review failed")
			s.Logger.LogError(err, "Review failed", "session", conv.ID(), "persona", sub.Persona)
			s.setFlash(w, apperrors.UserMessage(err))
			return
		}

		span.SetAttributes(attribute.String("review.score", result.Score))
		s.Logger.Info("Review generated",
			"session", conv.ID(),
			"persona", sub.Persona,
			"mode", sub.Mode,
			"score", result.Score)
	}
}

// createChatHandler sends a follow-up message on the session's chat
func (s *Server) createChatHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "web.chat")
		defer span.End()

		conv := s.conversation(w, r)
		defer http.Redirect(w, r, "/", http.StatusSeeOther)

		message := r.FormValue("message")
		if strings.TrimSpace(message) == "" {
			return
		}

		_, err := conv.Reply(ctx, message)
		om.GetMetrics().RecordChatTurn(ctx, conv.Persona(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "chat failed")
			s.Logger.LogError(err, "Chat reply failed", "session", conv.ID())
			s.setFlash(w, apperrors.UserMessage(err))
		}
	}
}

// resetHandler drops the transcript and returns to the submission form
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	conv := s.conversation(w, r)
	conv.Reset()
	s.Logger.Debug("Session reset", "session", conv.ID())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// downloadHandler offers the review, or with scope=transcript the whole
// conversation, as an attachment
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	conv := s.conversation(w, r)

	format := formatters.NormalizeFormat(r.URL.Query().Get("format"))
	if !slices.Contains(formatters.GlobalRegistry.GetSupportedFormats(), format) {
		writeErrorResponse(w, "Unsupported format", "format must be one of txt, md, json", http.StatusBadRequest)
		return
	}

	turn, ok := conv.FirstAssistantTurn()
	if !ok {
		writeErrorResponse(w, "No review available", "Submit a candidate first", http.StatusNotFound)
		return
	}

	var data any
	download := formatters.DownloadFor(format)
	view := conv.Snapshot()
	if r.URL.Query().Get("scope") == "transcript" {
		data = view
		download = formatters.TranscriptDownloadFor(format)
	} else {
		data = types.ReviewDocument{
			Persona: view.Persona,
			Model:   view.Model,
			Score:   view.Score,
			Review:  turn.Content,
		}
	}

	content, err := formatters.GlobalRegistry.Format(data, format)
	if err != nil {
		s.Logger.LogError(err, "Failed to format download", "format", format)
		writeErrorResponse(w, "Failed to format download", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	_, _ = w.Write([]byte(content))
}

// sessionHandler returns the caller's session snapshot as JSON
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	conv := s.conversation(w, r)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(conv.Snapshot()); err != nil {
		s.Logger.LogError(err, "Failed to encode session response")
	}
}

// parseSubmission reads persona, mode and candidate text from the form
func (s *Server) parseSubmission(r *http.Request) (session.Submission, error) {
	if err := parseForm(r); err != nil {
		return session.Submission{}, err
	}

	persona, err := types.ParsePersona(r.FormValue("persona"))
	if err != nil {
		return session.Submission{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidPersona,
			"Select one of the manager personas", err)
	}

	mode, err := types.ParseSubmissionMode(r.FormValue("mode"))
	if err != nil {
		return session.Submission{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidMode,
			"Choose a PDF upload or pasted text", err)
	}

	var text string
	switch mode {
	case types.ModePDF:
		text, err = s.readUpload(r)
		if err != nil {
			return session.Submission{}, err
		}
	case types.ModeText:
		text = r.FormValue("text")
	}

	return session.Submission{
		Persona:       persona,
		Mode:          mode,
		CandidateText: text,
		Lore:          s.Lore.Current(),
	}, nil
}

func (s *Server) readUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return "", apperrors.NewValidationError(apperrors.ErrCodeEmptyCandidateText,
			"Upload a PDF before executing the review", nil)
	}
	if err != nil {
		return "", apperrors.NewIOError(apperrors.ErrCodeFileNotReadable,
			"Could not read the uploaded file", err)
	}
	defer func() { _ = file.Close() }()

	return document.ReadUpload(file, header, s.maxFileSize())
}

// parseForm accepts multipart and urlencoded bodies alike
func parseForm(r *http.Request) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apperrors.NewValidationError(apperrors.ErrCodeFileTooLarge,
			"The upload is larger than the server accepts", err)
	}
	return apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest,
		"The form could not be read", err)
}
