package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps per-session auth state: the pending OAuth state and the
// user signed in on that session.
type MemoryStore struct {
	mu sync.RWMutex
	// OAuth state mapping per session (for CSRF protection)
	oauthStateBySession map[string]string
	// Reverse mapping: state -> sessionID to resolve callbacks
	sessionByOAuthState map[string]string
	userBySession       map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		oauthStateBySession: make(map[string]string),
		sessionByOAuthState: make(map[string]string),
		userBySession:       make(map[string]User),
	}
}

func (m *MemoryStore) SetOAuthState(sessionID, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.oauthStateBySession[sessionID]; ok {
		delete(m.sessionByOAuthState, old)
	}
	m.oauthStateBySession[sessionID] = state
	m.sessionByOAuthState[state] = sessionID
}

func (m *MemoryStore) GetOAuthState(sessionID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.oauthStateBySession[sessionID]
}

func (m *MemoryStore) ClearOAuthState(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.oauthStateBySession[sessionID]; ok {
		delete(m.sessionByOAuthState, st)
		delete(m.oauthStateBySession, sessionID)
	}
}

func (m *MemoryStore) GetSessionByOAuthState(state string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionByOAuthState[state]
}

func (m *MemoryStore) SetUser(sessionID string, u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userBySession[sessionID] = u
}

func (m *MemoryStore) GetUser(sessionID string) (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.userBySession[sessionID]
	return u, ok
}

func (m *MemoryStore) ClearUser(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userBySession, sessionID)
}

// MemoryNotificationFeed is the feed used when no database is configured.
type MemoryNotificationFeed struct {
	mu          sync.Mutex
	items       []Notification
	subscribers map[chan []Notification]struct{}
	now         func() time.Time
}

func NewMemoryNotificationFeed(seed ...Notification) *MemoryNotificationFeed {
	f := &MemoryNotificationFeed{
		items:       append([]Notification(nil), seed...),
		subscribers: make(map[chan []Notification]struct{}),
		now:         time.Now,
	}
	SortNotifications(f.items)
	return f
}

func (f *MemoryNotificationFeed) List(context.Context) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(), nil
}

func (f *MemoryNotificationFeed) Add(_ context.Context, n Notification) (Notification, error) {
	if err := validateNotification(n); err != nil {
		return Notification{}, err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt == nil {
		at := f.now()
		n.CreatedAt = &at
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	SortNotifications(f.items)
	snap := f.snapshotLocked()
	for ch := range f.subscribers {
		deliver(ch, snap)
	}
	return n, nil
}

func (f *MemoryNotificationFeed) Subscribe(ctx context.Context) (<-chan []Notification, error) {
	ch := make(chan []Notification, 1)
	f.mu.Lock()
	ch <- f.snapshotLocked()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subscribers, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

func (f *MemoryNotificationFeed) snapshotLocked() []Notification {
	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out
}

// deliver replaces an unread snapshot with the newer one so slow readers
// only ever see the latest list.
func deliver(ch chan []Notification, snap []Notification) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
