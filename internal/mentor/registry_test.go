package mentor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raizian-mentor-backend/internal/llm"
)

func newTestRegistry(ttl time.Duration) (*Registry, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	return NewRegistry(Options{
		Provider:       fakeProvider{chat: &fakeChat{resp: llm.TextResponse(`{"reply":"ok"}`)}},
		RevealInterval: time.Millisecond,
		Metrics:        m,
	}, ttl), m
}

func TestRegistryGetOrCreate(t *testing.T) {
	r, m := newTestRegistry(time.Minute)
	defer r.Close()

	s1, created := r.GetOrCreate(context.Background(), "a")
	require.True(t, created)
	s2, created := r.GetOrCreate(context.Background(), "a")
	assert.False(t, created)
	assert.Same(t, s1, s2)

	_, ok := r.Get("b")
	assert.False(t, ok)
	r.GetOrCreate(context.Background(), "b")
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activeSessions))

	r.Delete("a")
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestRegistrySweep(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	defer r.Close()

	r.GetOrCreate(context.Background(), "old")
	fresh, _ := r.GetOrCreate(context.Background(), "fresh")

	assert.Equal(t, 0, r.Sweep(time.Now()))

	future := time.Now().Add(2 * time.Minute)
	fresh.mu.Lock()
	fresh.lastActive = future
	fresh.mu.Unlock()

	assert.Equal(t, 1, r.Sweep(future.Add(30*time.Second)))
	_, ok := r.Get("old")
	assert.False(t, ok)
	_, ok = r.Get("fresh")
	assert.True(t, ok)
}

func TestRegistrySweepDisabled(t *testing.T) {
	r, _ := newTestRegistry(0)
	defer r.Close()

	r.GetOrCreate(context.Background(), "a")
	assert.Equal(t, 0, r.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, r.Len())
}
