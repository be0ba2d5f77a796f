package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"raizian-mentor-backend/internal/events"
	"raizian-mentor-backend/internal/types"
)

const loginPath = "/api/auth/login"

// POST /api/chat {message}
// Runs one exchange and returns once the model has answered; the reveal
// keeps going on the events stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	if !s.signedIn(r, sid) {
		writeJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "sign in to chat with the mentor", LoginURL: loginPath})
		return
	}
	if !s.limiter.Allow(sid) {
		s.writeError(w, http.StatusTooManyRequests, "too many messages, slow down")
		return
	}

	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, _ := s.sessions.GetOrCreate(r.Context(), sid)
	accepted := sess.Submit(r.Context(), req.Message)
	if !accepted {
		log.Debug().Str("session_id", sid).Msg("chat submission ignored")
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{SessionID: sid, Accepted: accepted, State: sess.State()})
}

// GET /api/chat/state
func (s *Server) handleChatState(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	sess, _ := s.sessions.GetOrCreate(r.Context(), sid)
	writeJSON(w, http.StatusOK, sess.State())
}

// GET /api/chat/events
// Sends a "snapshot" with the full state, then one event per transcript
// change.
func (s *Server) handleChatEvents(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	if s.bus == nil {
		s.writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	sess, _ := s.sessions.GetOrCreate(r.Context(), sid)

	ctx := r.Context()
	sub, err := s.bus.Subscribe(ctx, events.Topic(sid))
	if err != nil {
		log.Error().Err(err).Str("session_id", sid).Msg("failed to subscribe to session events")
		s.writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	stream, err := startSSE(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := stream.send("snapshot", sess.State()); err != nil {
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if err := stream.send(string(e.Type), e); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}

// GET /api/prompts
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.PromptsResponse{
		QuickPrompts: s.prompts.QuickPrompts,
		Greeting:     s.prompts.Greeting,
	})
}
