package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"hrportal/internal/ai"
	"hrportal/internal/config"
	apperrors "hrportal/internal/errors"
	"hrportal/internal/observability"
	"hrportal/internal/review"
	"hrportal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	mu      sync.Mutex
	replies []string
	err     error
	sent    []string
}

func (f *fakeChat) Send(_ context.Context, message string) (*ai.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, message)
	if f.err != nil {
		return nil, f.err
	}

	text := "Noted."
	if len(f.replies) > 0 {
		text, f.replies = f.replies[0], f.replies[1:]
	}
	return &ai.Reply{
		Text:  text,
		Model: f.Model(),
		Usage: &types.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeChat) Model() string { return "gemini-test-flash" }

func (f *fakeChat) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeStarter struct {
	chat *fakeChat
	err  error
}

func (f *fakeStarter) StartChat(context.Context) (ai.ChatSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chat, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			IdleTimeout: time.Hour,
			CookieName:  "hrportal_session",
		},
		App: config.AppConfig{MaxFileSize: 1 << 20},
		AI:  config.AIConfig{Model: "gemini-test-flash"},
	}
}

func newTestServer(t *testing.T, starter ai.ChatStarter, mutate func(*ServerConfig)) (*Server, http.Handler) {
	t.Helper()

	cfg := testConfig()
	serverCfg := ServerConfig{
		Version:        "test",
		MaxRequestSize: 2 << 20,
		Starter:        starter,
		Lore:           review.FileLore{},
	}
	if mutate != nil {
		mutate(&serverCfg)
	}

	logger := apperrors.NewLoggerWithWriter(io.Discard, slog.LevelError)
	srv := NewServer(cfg, serverCfg, logger)
	t.Cleanup(srv.releaseResources)

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{}, cfg)
	require.NoError(t, err)
	return srv, srv.Router(om)
}

// browser carries cookies between requests like a real client
type browser struct {
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(h http.Handler) *browser {
	return &browser{handler: h, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postUpload(path string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if filename != "" {
		part, _ := w.CreateFormFile("file", filename)
		_, _ = part.Write(content)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func (b *browser) session(t *testing.T) types.SessionView {
	t.Helper()
	rec := b.get("/api/session")
	require.Equal(t, http.StatusOK, rec.Code)

	var view types.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func textSubmission(persona types.Persona, text string) url.Values {
	return url.Values{
		"persona": {string(persona)},
		"mode":    {string(types.ModeText)},
		"text":    {text},
	}
}

func TestIdlePageRendersForm(t *testing.T) {
	_, h := newTestServer(t, &fakeStarter{chat: &fakeChat{}}, nil)
	b := newBrowser(h)

	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "SMU HR: Oasis Portal")
	assert.Contains(t, body, "Select Manager Persona:")
	for _, p := range types.AllPersonas() {
		assert.Contains(t, body, string(p))
	}
	assert.Contains(t, body, "Execute Performance Review")
	assert.Contains(t, body, "Analyzing candidate clout metrics and synergies...")
	assert.Contains(t, body, "https://oasis.smu.edu.sg")
	assert.NotContains(t, body, "Live Manager Evaluation")
	assert.Contains(t, b.cookies, "hrportal_session")
}

func TestReviewChatResetFlow(t *testing.T) {
	chat := &fakeChat{replies: []string{"Review body\nTOXICITY_SCORE: 42", "Your defence lacks synergy."}}
	_, h := newTestServer(t, &fakeStarter{chat: chat}, nil)
	b := newBrowser(h)

	rec := b.postForm("/review", textSubmission(types.PersonaTechBro, "Built a blockchain app in my dorm room"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	sent := chat.sentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Cutthroat Tech Bro")
	assert.Contains(t, sent[0], "Built a blockchain app in my dorm room")
	assert.Contains(t, sent[0], review.FallbackLore)

	view := b.session(t)
	require.True(t, view.Active)
	assert.Equal(t, "42", view.Score)
	require.Len(t, view.Turns, 1)
	assert.Equal(t, "Review body", view.Turns[0].Content)

	page := b.get("/").Body.String()
	assert.Contains(t, page, "42/100")
	assert.Contains(t, page, "Review body")
	assert.Contains(t, page, "Live Manager Evaluation")
	assert.Contains(t, page, "Defend your profile...")
	assert.NotContains(t, page, "Execute Performance Review")

	rec = b.postForm("/chat", url.Values{"message": {"I disagree"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	sent = chat.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, review.FollowUpPrompt(types.PersonaTechBro, "I disagree"), sent[1])

	view = b.session(t)
	require.Len(t, view.Turns, 3)
	assert.Equal(t, types.RoleUser, view.Turns[1].Role)
	assert.Equal(t, "Your defence lacks synergy.", view.Turns[2].Content)

	rec = b.get("/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Review body", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "performance_review.txt")

	rec = b.postForm("/reset", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	view = b.session(t)
	assert.False(t, view.Active)
	assert.Empty(t, view.Turns)
	assert.Empty(t, view.Score)

	rec = b.get("/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBlankChatMessageIsIgnored(t *testing.T) {
	chat := &fakeChat{replies: []string{"Review TOXICITY_SCORE: 10"}}
	_, h := newTestServer(t, &fakeStarter{chat: chat}, nil)
	b := newBrowser(h)

	b.postForm("/review", textSubmission(types.PersonaHRDirector, "resume"))
	b.postForm("/chat", url.Values{"message": {"   "}})

	assert.Len(t, chat.sentMessages(), 1)
	assert.Len(t, b.session(t).Turns, 1)
	assert.NotContains(t, b.get("/").Body.String(), `role="alert"`)
}

func TestAPIFailureShowsBannerOnce(t *testing.T) {
	starter := &fakeStarter{err: apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Gemini API error 503: overloaded", nil)}
	_, h := newTestServer(t, starter, nil)
	b := newBrowser(h)

	rec := b.postForm("/review", textSubmission(types.PersonaMiddleManager, "resume text"))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := b.get("/").Body.String()
	assert.Contains(t, page, "The AI manager is unavailable right now: Gemini API error 503: overloaded")
	assert.Contains(t, page, "Execute Performance Review")
	assert.False(t, b.session(t).Active)

	assert.NotContains(t, b.get("/").Body.String(), "Gemini API error 503")
}

func TestChatFailureRollsBackAndShowsBanner(t *testing.T) {
	chat := &fakeChat{replies: []string{"Review TOXICITY_SCORE: 5"}}
	_, h := newTestServer(t, &fakeStarter{chat: chat}, nil)
	b := newBrowser(h)

	b.postForm("/review", textSubmission(types.PersonaTechBro, "resume"))
	chat.mu.Lock()
	chat.err = apperrors.NewAIError(apperrors.ErrCodeAITimeout, "Gemini did not answer in time", nil)
	chat.mu.Unlock()

	b.postForm("/chat", url.Values{"message": {"hello?"}})

	view := b.session(t)
	assert.Len(t, view.Turns, 1)
	assert.Contains(t, b.get("/").Body.String(), "Gemini did not answer in time")
}

func TestMissingAPIKeyKeepsFormInert(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	b := newBrowser(h)

	page := b.get("/").Body.String()
	assert.Contains(t, page, "GEMINI_API_KEY is not configured")
	assert.Contains(t, page, `type="submit" disabled`)

	rec := b.postForm("/review", textSubmission(types.PersonaTechBro, "resume"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, b.session(t).Active)
}

func TestSubmissionValidation(t *testing.T) {
	tests := []struct {
		name   string
		submit func(b *browser) *httptest.ResponseRecorder
		banner string
	}{
		{
			name: "unknown persona",
			submit: func(b *browser) *httptest.ResponseRecorder {
				return b.postForm("/review", textSubmission("Friendly Mentor", "resume"))
			},
			banner: "Select one of the manager personas",
		},
		{
			name: "unknown mode",
			submit: func(b *browser) *httptest.ResponseRecorder {
				return b.postForm("/review", url.Values{"persona": {string(types.PersonaTechBro)}, "mode": {"docx"}})
			},
			banner: "Choose a PDF upload or pasted text",
		},
		{
			name: "empty text",
			submit: func(b *browser) *httptest.ResponseRecorder {
				return b.postForm("/review", textSubmission(types.PersonaTechBro, "   "))
			},
			banner: "Candidate text is empty",
		},
		{
			name: "pdf mode without a file",
			submit: func(b *browser) *httptest.ResponseRecorder {
				return b.postUpload("/review", map[string]string{"persona": string(types.PersonaTechBro), "mode": "pdf"}, "", nil)
			},
			banner: "Upload a PDF before executing the review",
		},
		{
			name: "upload that is not a pdf",
			submit: func(b *browser) *httptest.ResponseRecorder {
				return b.postUpload("/review", map[string]string{"persona": string(types.PersonaTechBro), "mode": "pdf"}, "resume.pdf", []byte("plain words"))
			},
			banner: "The uploaded file is not a PDF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{}
			_, h := newTestServer(t, &fakeStarter{chat: chat}, nil)
			b := newBrowser(h)

			rec := tt.submit(b)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Contains(t, b.get("/").Body.String(), tt.banner)
			assert.Empty(t, chat.sentMessages())
			assert.False(t, b.session(t).Active)
		})
	}
}

func TestDownloadFormats(t *testing.T) {
	chat := &fakeChat{replies: []string{"**Bold** review\nTOXICITY_SCORE: 77"}}
	_, h := newTestServer(t, &fakeStarter{chat: chat}, nil)
	b := newBrowser(h)
	b.postForm("/review", textSubmission(types.PersonaHRDirector, "resume"))

	rec := b.get("/download?format=md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "performance_review.md")
	assert.Contains(t, rec.Body.String(), "77/100")

	rec = b.get("/download?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc types.ReviewDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, types.PersonaHRDirector, doc.Persona)
	assert.Equal(t, "77", doc.Score)
	assert.Equal(t, "gemini-test-flash", doc.Model)

	rec = b.get("/download?format=txt&scope=transcript")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "evaluation_transcript.txt")

	rec = b.get("/download?format=docx")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitOnPostRoutes(t *testing.T) {
	_, h := newTestServer(t, &fakeStarter{chat: &fakeChat{}}, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1}
	})
	b := newBrowser(h)

	assert.Equal(t, http.StatusSeeOther, b.postForm("/reset", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, b.postForm("/reset", nil).Code)

	// page views are not limited
	assert.Equal(t, http.StatusOK, b.get("/").Code)
}

func TestRequestSizeLimit(t *testing.T) {
	chat := &fakeChat{}
	_, h := newTestServer(t, &fakeStarter{chat: chat}, func(c *ServerConfig) {
		c.MaxRequestSize = 512
	})
	b := newBrowser(h)

	rec := b.postForm("/review", textSubmission(types.PersonaTechBro, strings.Repeat("x", 2048)))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, b.get("/").Body.String(), "The upload is larger than the server accepts")
	assert.Empty(t, chat.sentMessages())
}

func TestSessionsAreIsolated(t *testing.T) {
	chat := &fakeChat{replies: []string{"Review TOXICITY_SCORE: 1"}}
	_, h := newTestServer(t, &fakeStarter{chat: chat}, nil)

	alice := newBrowser(h)
	bob := newBrowser(h)

	alice.postForm("/review", textSubmission(types.PersonaTechBro, "resume"))

	assert.True(t, alice.session(t).Active)
	assert.False(t, bob.session(t).Active)
	assert.NotEqual(t, alice.cookies["hrportal_session"].Value, bob.cookies["hrportal_session"].Value)
}

func TestHealthAndStats(t *testing.T) {
	t.Run("healthy with a starter", func(t *testing.T) {
		_, h := newTestServer(t, &fakeStarter{chat: &fakeChat{}}, nil)
		rec := newBrowser(h).get("/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "test", body["version"])
	})

	t.Run("degraded without an API key", func(t *testing.T) {
		_, h := newTestServer(t, nil, nil)
		rec := newBrowser(h).get("/health")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "degraded")
	})

	t.Run("stats", func(t *testing.T) {
		_, h := newTestServer(t, nil, nil)
		b := newBrowser(h)
		b.get("/")

		rec := b.get("/stats")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		sessions := body["sessions"].(map[string]any)
		assert.EqualValues(t, 1, sessions["active"])
	})
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	out := string(renderMarkdown("**Bold** <script>alert(1)</script>"))
	assert.Contains(t, out, "<strong>Bold</strong>")
	assert.NotContains(t, out, "<script>")
}
