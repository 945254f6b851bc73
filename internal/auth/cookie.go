package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hirehub/apiserver/types"
)

const (
	// CookieName carries the token in browsers.
	CookieName = "token"

	loggedOutValue = "none"
)

// AuthResponse is the body written whenever a token is handed out.
type AuthResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    types.User `json:"user"`
}

// AttachToResponse issues a token for user, sets it as an HttpOnly cookie that
// expires with the token, and writes {success, token, user} with status.
func (s *TokenService) AttachToResponse(w http.ResponseWriter, user types.User, status int) error {
	token, err := s.Issue(user.ID)
	if err != nil {
		return err
	}

	http.SetCookie(w, s.cookie(token.Value, token.ExpiresAt))

	body, err := json.Marshal(AuthResponse{Success: true, Token: token.Value, User: user})
	if err != nil {
		return fmt.Errorf("encode auth response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

// ClearCookie overwrites the token cookie with a placeholder that expires now.
func (s *TokenService) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(loggedOutValue, s.now()))
}

func (s *TokenService) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest reads the token cookie, then falls back to a Bearer
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" && cookie.Value != loggedOutValue {
		return cookie.Value
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
