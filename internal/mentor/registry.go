package mentor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry holds the live sessions keyed by session id.
type Registry struct {
	opts    Options
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates sessions with opts. Sessions idle for longer than
// idleTTL are dropped by Sweep; a zero idleTTL keeps them forever.
func NewRegistry(opts Options, idleTTL time.Duration) *Registry {
	return &Registry{
		opts:     opts,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it on first use. The
// second result reports whether the session was created by this call.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s := NewSession(ctx, id, r.opts)
	r.sessions[id] = s
	r.opts.Metrics.sessions(len(r.sessions))
	log.Debug().Str("session_id", id).Msg("chat session created")
	return s, true
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete closes and forgets the session for id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.opts.Metrics.sessions(len(r.sessions))
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions that are idle as of now and not mid-exchange. It
// returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.Busy() || now.Sub(s.idleSince()) < r.idleTTL {
			continue
		}
		expired = append(expired, s)
		delete(r.sessions, id)
	}
	r.opts.Metrics.sessions(len(r.sessions))
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("swept idle chat sessions")
	}
	return len(expired)
}

// Run sweeps on a fixed cadence until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.idleTTL <= 0 {
		return
	}
	every := r.idleTTL / 2
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.opts.Metrics.sessions(0)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
