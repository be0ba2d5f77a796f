package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"raizian-mentor-backend/internal/store"
	"raizian-mentor-backend/internal/types"
)

// preferenceKey is the signed-in user when there is one, else the session.
func (s *Server) preferenceKey(r *http.Request, sid string) string {
	if u, ok := s.currentUser(r.Context(), sid); ok {
		return "user:" + u.ID
	}
	return "session:" + sid
}

// GET /api/theme
func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	theme := store.DefaultTheme
	if s.preferences != nil {
		t, err := s.preferences.Theme(s.preferenceKey(r, sid))
		if err != nil {
			log.Warn().Err(err).Msg("failed to read theme, using default")
		}
		theme = t
	}
	writeJSON(w, http.StatusOK, types.ThemeResponse{Theme: theme})
}

// PUT /api/theme {theme}
func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	var req types.ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if s.preferences == nil {
		theme, err := store.NormalizeTheme(req.Theme)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.ThemeResponse{Theme: theme})
		return
	}
	theme, err := s.preferences.SetTheme(s.preferenceKey(r, sid), req.Theme)
	if errors.Is(err, store.ErrInvalidTheme) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to save theme")
		s.writeError(w, http.StatusInternalServerError, "failed to save theme")
		return
	}
	writeJSON(w, http.StatusOK, types.ThemeResponse{Theme: theme})
}
