package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"raizian-mentor-backend/internal/store"
	"raizian-mentor-backend/internal/types"
)

// GET /api/notifications
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.feed.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list notifications")
		s.writeError(w, http.StatusBadGateway, "failed to load notifications")
		return
	}
	writeJSON(w, http.StatusOK, types.NewNotificationViews(list))
}

// POST /api/notifications, admin only.
func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AdminToken == "" {
		s.writeError(w, http.StatusForbidden, "notification publishing disabled")
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
		s.writeError(w, http.StatusUnauthorized, "invalid admin token")
		return
	}

	var req types.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "title and message are required")
		return
	}
	n, err := s.feed.Add(r.Context(), store.Notification{
		Title:   strings.TrimSpace(req.Title),
		Message: strings.TrimSpace(req.Message),
		Type:    strings.TrimSpace(req.Type),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to add notification")
		s.writeError(w, http.StatusBadGateway, "failed to save notification")
		return
	}
	writeJSON(w, http.StatusCreated, types.NewNotificationViews([]store.Notification{n})[0])
}

// GET /api/notifications/stream
// Each "notifications" event carries the full ordered list.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := s.feed.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to subscribe to notifications")
		s.writeError(w, http.StatusBadGateway, "failed to subscribe")
		return
	}
	stream, err := startSSE(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-sub:
			if !ok {
				return
			}
			if err := stream.send("notifications", types.NewNotificationViews(list)); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}
