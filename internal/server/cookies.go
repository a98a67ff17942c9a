package server

import (
	"encoding/base64"
	"net/http"

	"hrportal/internal/session"
)

const defaultCookieName = "hrportal_session"

func (s *Server) cookieName() string {
	if s.AppConfig != nil && s.AppConfig.Session.CookieName != "" {
		return s.AppConfig.Session.CookieName
	}
	return defaultCookieName
}

func (s *Server) flashCookieName() string {
	return s.cookieName() + "_flash"
}

func (s *Server) cookieSecure() bool {
	return s.AppConfig != nil && s.AppConfig.Session.CookieSecure
}

// conversation returns the caller's conversation, issuing a new session
// cookie when the browser has none or its session expired
func (s *Server) conversation(w http.ResponseWriter, r *http.Request) *session.Conversation {
	var id string
	if c, err := r.Cookie(s.cookieName()); err == nil {
		id = c.Value
	}

	conv, created := s.Sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     s.cookieName(),
			Value:    conv.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cookieSecure(),
			SameSite: http.SameSiteLaxMode,
		})
	}
	return conv
}

// setFlash stores a banner message for the next page render
func (s *Server) setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.flashCookieName(),
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns and clears the pending banner message
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(s.flashCookieName())
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.flashCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	message, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(message)
}
