package types

import (
	"time"

	"raizian-mentor-backend/internal/mentor"
	"raizian-mentor-backend/internal/store"
)

type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse reports whether the exchange ran. The reveal continues after
// the response; clients follow it on the events stream or by polling state.
type ChatResponse struct {
	SessionID string              `json:"sessionId"`
	Accepted  bool                `json:"accepted"`
	State     mentor.SessionState `json:"state"`
}

type ErrorResponse struct {
	Error    string `json:"error"`
	LoginURL string `json:"loginUrl,omitempty"`
}

type AuthStatusResponse struct {
	Authenticated bool        `json:"authenticated"`
	AuthEnabled   bool        `json:"authEnabled"`
	User          *store.User `json:"user,omitempty"`
	LoginURL      string      `json:"loginUrl,omitempty"`
}

type LoginResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ThemeResponse struct {
	Theme string `json:"theme"`
}

type NotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// NotificationView is a notification as displayed, with the type defaulted.
type NotificationView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func NewNotificationViews(ns []store.Notification) []NotificationView {
	out := make([]NotificationView, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationView{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Kind(),
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

type PromptsResponse struct {
	QuickPrompts []mentor.QuickPrompt `json:"quickPrompts"`
	Greeting     string               `json:"greeting"`
}
