package store

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// User is the signed-in identity as reported by the identity provider.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

const defaultNotificationKind = "update"

// Notification is one announcement in the feed. Type and CreatedAt are
// optional.
type Notification struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Kind is the display type, "update" when none was set.
func (n Notification) Kind() string {
	if n.Type == "" {
		return defaultNotificationKind
	}
	return n.Type
}

// NotificationFeed is a read-mostly announcement list with live updates.
type NotificationFeed interface {
	List(ctx context.Context) ([]Notification, error)
	Add(ctx context.Context, n Notification) (Notification, error)
	// Subscribe sends the current list, then a fresh list after every change,
	// until ctx is done.
	Subscribe(ctx context.Context) (<-chan []Notification, error)
}

// UserStore persists signed-in users across restarts.
type UserStore interface {
	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
}

// SortNotifications orders newest first; entries without a timestamp go last.
func SortNotifications(ns []Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		a, b := ns[i].CreatedAt, ns[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
}

func validateNotification(n Notification) error {
	if n.Title == "" || n.Message == "" {
		return errors.New("notification title and message are required")
	}
	return nil
}
