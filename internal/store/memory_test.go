package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreOAuthState(t *testing.T) {
	m := NewMemoryStore()
	m.SetOAuthState("s1", "state-a")
	assert.Equal(t, "state-a", m.GetOAuthState("s1"))
	assert.Equal(t, "s1", m.GetSessionByOAuthState("state-a"))

	m.SetOAuthState("s1", "state-b")
	assert.Empty(t, m.GetSessionByOAuthState("state-a"), "replaced state no longer resolves")
	assert.Equal(t, "s1", m.GetSessionByOAuthState("state-b"))

	m.ClearOAuthState("s1")
	assert.Empty(t, m.GetOAuthState("s1"))
	assert.Empty(t, m.GetSessionByOAuthState("state-b"))
}

func TestMemoryStoreUsers(t *testing.T) {
	m := NewMemoryStore()
	_, ok := m.GetUser("s1")
	assert.False(t, ok)

	m.SetUser("s1", User{ID: "u1", Email: "a@b.c"})
	u, ok := m.GetUser("s1")
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	m.ClearUser("s1")
	_, ok = m.GetUser("s1")
	assert.False(t, ok)
}

func at(minutes int) *time.Time {
	t := time.Date(2025, 1, 1, 0, minutes, 0, 0, time.UTC)
	return &t
}

func TestSortNotifications(t *testing.T) {
	ns := []Notification{
		{ID: "none"},
		{ID: "old", CreatedAt: at(1)},
		{ID: "new", CreatedAt: at(5)},
		{ID: "mid", CreatedAt: at(3)},
	}
	SortNotifications(ns)

	var ids []string
	for _, n := range ns {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old", "none"}, ids)
}

func TestNotificationKind(t *testing.T) {
	assert.Equal(t, "update", Notification{}.Kind())
	assert.Equal(t, "event", Notification{Type: "event"}.Kind())
}

func TestMemoryNotificationFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := NewMemoryNotificationFeed(Notification{ID: "seed", Title: "Welcome", Message: "hi", CreatedAt: at(1)})
	f.now = func() time.Time { return *at(10) }

	sub, err := f.Subscribe(ctx)
	require.NoError(t, err)
	first := <-sub
	require.Len(t, first, 1)

	_, err = f.Add(ctx, Notification{Title: "", Message: "x"})
	assert.Error(t, err)

	added, err := f.Add(ctx, Notification{Title: "New course", Message: "Go basics"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	require.NotNil(t, added.CreatedAt)

	next := <-sub
	require.Len(t, next, 2)
	assert.Equal(t, added.ID, next[0].ID)

	list, err := f.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, list)

	cancel()
	_, open := <-sub
	assert.False(t, open)
}

func TestMemoryNotificationFeedKeepsLatestForSlowReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := NewMemoryNotificationFeed()
	sub, err := f.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.Add(ctx, Notification{Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	latest := <-sub
	assert.Len(t, latest, 3)
}
