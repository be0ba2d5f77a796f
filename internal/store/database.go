package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"raizian-mentor-backend/internal/db"
)

// NotificationsChannel is the LISTEN/NOTIFY channel raised by the
// notifications trigger.
const NotificationsChannel = "notifications_changed"

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPing         = 90 * time.Second
)

// DatabaseStore keeps users and notifications in PostgreSQL.
type DatabaseStore struct {
	db *db.DB
}

func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

// SaveUser inserts or refreshes a user record.
func (ds *DatabaseStore) SaveUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	_, err := ds.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			updated_at = NOW()
	`, u.ID, u.Email, u.Name, u.Picture)
	return errors.Wrap(err, "save user")
}

func (ds *DatabaseStore) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, errors.New("user id is required")
	}
	var u User
	err := ds.db.QueryRowContext(ctx, `SELECT id, email, name, picture FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Picture)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return &u, nil
}

func (ds *DatabaseStore) List(ctx context.Context) ([]Notification, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, title, message, type, created_at
		FROM notifications
		ORDER BY created_at DESC NULLS LAST
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n    Notification
			kind sql.NullString
			at   sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &kind, &at); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		n.Type = kind.String
		if at.Valid {
			t := at.Time
			n.CreatedAt = &t
		}
		out = append(out, n)
	}
	return out, errors.Wrap(rows.Err(), "iterate notifications")
}

func (ds *DatabaseStore) Add(ctx context.Context, n Notification) (Notification, error) {
	if err := validateNotification(n); err != nil {
		return Notification{}, err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt == nil {
		at := time.Now().UTC()
		n.CreatedAt = &at
	}
	kind := sql.NullString{String: n.Type, Valid: n.Type != ""}
	_, err := ds.db.ExecContext(ctx,
		`INSERT INTO notifications (id, title, message, type, created_at) VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.Title, n.Message, kind, *n.CreatedAt)
	if err != nil {
		return Notification{}, errors.Wrap(err, "insert notification")
	}
	return n, nil
}

// Subscribe listens on NotificationsChannel and re-reads the table after each
// change or reconnect.
func (ds *DatabaseStore) Subscribe(ctx context.Context) (<-chan []Notification, error) {
	initial, err := ds.List(ctx)
	if err != nil {
		return nil, err
	}

	listener := pq.NewListener(ds.db.DSN, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn().Err(err).Int("event", int(ev)).Msg("notification listener event")
		}
	})
	if err := listener.Listen(NotificationsChannel); err != nil {
		listener.Close()
		return nil, errors.Wrap(err, "listen for notification changes")
	}

	out := make(chan []Notification, 1)
	out <- initial
	go func() {
		defer close(out)
		defer listener.Close()
		ping := time.NewTicker(listenerPing)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Notify:
				// a nil notification means the connection was re-established
			case <-ping.C:
				if err := listener.Ping(); err != nil {
					log.Warn().Err(err).Msg("notification listener ping failed")
				}
				continue
			}
			list, err := ds.List(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("failed to refresh notifications")
				}
				continue
			}
			deliver(out, list)
		}
	}()
	return out, nil
}

var (
	_ NotificationFeed = (*DatabaseStore)(nil)
	_ NotificationFeed = (*MemoryNotificationFeed)(nil)
	_ UserStore        = (*DatabaseStore)(nil)
)
