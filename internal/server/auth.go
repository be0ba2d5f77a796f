package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"raizian-mentor-backend/internal/store"
	"raizian-mentor-backend/internal/types"
)

func (s *Server) authEnabled() bool {
	return s.oauthCfg != nil && s.oauthCfg.ClientID != "" && s.oauthCfg.ClientSecret != ""
}

// currentUser returns the user signed in on sid. The persisted profile wins
// over the copy cached at sign-in when a user store is configured.
func (s *Server) currentUser(ctx context.Context, sid string) (*store.User, bool) {
	if sid == "" {
		return nil, false
	}
	u, ok := s.auth.GetUser(sid)
	if !ok {
		return nil, false
	}
	if s.users != nil {
		if fresh, err := s.users.GetUser(ctx, u.ID); err == nil {
			return fresh, true
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to load stored user")
		}
	}
	return &u, true
}

// signedIn is the chat gate. Without sign-in configured everyone passes.
func (s *Server) signedIn(r *http.Request, sid string) bool {
	if !s.authEnabled() {
		return true
	}
	_, ok := s.currentUser(r.Context(), sid)
	return ok
}

// GET /api/auth/status
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	resp := types.AuthStatusResponse{AuthEnabled: s.authEnabled()}
	if u, ok := s.currentUser(r.Context(), getSessionID(r)); ok {
		resp.Authenticated = true
		resp.User = u
	} else if resp.AuthEnabled {
		resp.LoginURL = loginPath
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/auth/login
// Starts the Google sign-in and returns { url, sessionId } for the browser.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		s.writeError(w, http.StatusBadRequest, "google sign-in not configured")
		return
	}
	sid := s.getOrCreateSessionID(r, w)
	state := randomState()
	s.auth.SetOAuthState(sid, state)
	writeJSON(w, http.StatusOK, types.LoginResponse{
		URL:       s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline),
		SessionID: sid,
	})
}

// GET /api/auth/callback?code=...&state=...
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		s.writeError(w, http.StatusBadRequest, "google sign-in not configured")
		return
	}
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		s.writeError(w, http.StatusBadRequest, "missing state or code")
		return
	}
	sid := s.auth.GetSessionByOAuthState(state)
	if sid == "" || s.auth.GetOAuthState(sid) != state {
		s.writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}

	ctx := r.Context()
	tok, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sid).Msg("oauth token exchange failed")
		s.writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}
	user, err := s.fetchUser(ctx, tok)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sid).Msg("failed to fetch user profile")
		s.writeError(w, http.StatusBadGateway, "failed to fetch user profile")
		return
	}

	if s.users != nil {
		if err := s.users.SaveUser(ctx, *user); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("failed to save user")
			s.writeError(w, http.StatusInternalServerError, "failed to save user")
			return
		}
	}
	s.auth.SetUser(sid, *user)
	s.auth.ClearOAuthState(sid)
	log.Info().Str("session_id", sid).Str("user_id", user.ID).Msg("user signed in")

	// Popup and main window share the session through the cookie.
	SetSessionCookie(w, sid, s.cfg.SecureCookies)
	http.Redirect(w, r, s.cfg.FrontendURL+"?auth=success", http.StatusFound)
}

// POST /api/auth/logout
func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if sid := getSessionID(r); sid != "" {
		s.auth.ClearUser(sid)
		s.auth.ClearOAuthState(sid)
		s.sessions.Delete(sid)
	}
	ClearSessionCookie(w, s.cfg.SecureCookies)
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

func randomState() string {
	var b [24]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

func (s *Server) fetchUser(ctx context.Context, tok *oauth2.Token) (*store.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build userinfo request")
	}
	resp, err := s.oauthCfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "userinfo request")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("userinfo returned %d", resp.StatusCode)
	}
	var body struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode userinfo")
	}
	if strings.TrimSpace(body.Sub) == "" {
		return nil, errors.New("userinfo has no subject")
	}
	return &store.User{ID: body.Sub, Email: body.Email, Name: body.Name, Picture: body.Picture}, nil
}
