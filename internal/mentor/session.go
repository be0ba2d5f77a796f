package mentor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"raizian-mentor-backend/internal/events"
	"raizian-mentor-backend/internal/llm"
)

const defaultRequestTimeout = 60 * time.Second

type Options struct {
	Provider       llm.Provider
	Prompts        *Prompts
	RevealInterval time.Duration
	RequestTimeout time.Duration
	// Publisher and Metrics are optional.
	Publisher events.Publisher
	Metrics   *Metrics
}

// SessionState is a point-in-time view of a session for the presentation
// layer.
type SessionState struct {
	SessionID     string    `json:"sessionId"`
	Messages      []Message `json:"messages"`
	Busy          bool      `json:"busy"`
	Revealing     bool      `json:"revealing"`
	Initialized   bool      `json:"initialized"`
	Suggestions   []string  `json:"suggestions"`
	NextStepLabel string    `json:"nextStepLabel"`
}

// Session runs one exchange at a time against a model chat and reveals the
// answers progressively into its transcript.
type Session struct {
	id         string
	prompts    *Prompts
	timeout    time.Duration
	publisher  events.Publisher
	metrics    *Metrics
	transcript *Transcript
	revealer   *Revealer
	chat       llm.Chat
	logger     zerolog.Logger

	// ctx outlives individual requests so reveals keep ticking after the
	// submitting call has returned.
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	busy          bool
	revealing     bool
	revealGen     uint64
	suggestions   []string
	nextStepLabel string
	lastActive    time.Time
}

// NewSession opens a model chat and seeds the transcript with the greeting.
// When the chat cannot be created the failure is recorded in the transcript
// and every later Submit is a no-op.
func NewSession(ctx context.Context, id string, opts Options) *Session {
	prompts := opts.Prompts
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	interval := opts.RevealInterval
	if interval <= 0 {
		interval = 320 * time.Millisecond
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		prompts:    prompts,
		timeout:    timeout,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		transcript: NewTranscript(),
		logger:     log.With().Str("session_id", id).Logger(),
		ctx:        sctx,
		cancel:     cancel,
		lastActive: time.Now(),
	}
	s.revealer = NewRevealer(interval, s.writeReveal)

	s.appendMessage(AuthorModel, prompts.Greeting)

	if opts.Provider == nil {
		opts.Provider = llm.Unavailable(nil)
	}
	chat, err := opts.Provider.NewChat(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to initialize model chat")
		s.appendMessage(AuthorModel, prompts.Copy.InitFailure)
		return s
	}
	s.chat = chat
	return s
}

func (s *Session) ID() string { return s.id }

// Submit runs one exchange. It returns false without touching the session
// when text is blank, an exchange is already in flight, or the model chat
// never initialized. Failures are reported in the transcript, not returned.
func (s *Session) Submit(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		s.metrics.exchange(outcomeRejected)
		return false
	}
	s.mu.Lock()
	if s.busy || s.chat == nil {
		s.mu.Unlock()
		s.metrics.exchange(outcomeRejected)
		return false
	}
	s.busy = true
	s.suggestions = nil
	s.nextStepLabel = ""
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.publish(events.Event{Type: events.BusyChanged, Busy: true})
	s.publish(events.Event{Type: events.SuggestionsUpdated})
	defer s.setBusy(false)

	// A reveal still running from the previous exchange is finished at once.
	if index, ok := s.revealer.Settle(); ok {
		s.endReveal(0)
		s.publish(events.Event{Type: events.RevealDone, Index: index})
	}

	s.appendMessage(AuthorUser, text)
	// The placeholder will land right after the user message; this has to be
	// measured before the model call.
	placeholderIndex := s.transcript.Len()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	resp, err := s.chat.SendMessage(callCtx, s.prompts.Compose(text))
	cancel()
	s.metrics.observeModel(time.Since(start))
	if err != nil {
		s.logger.Warn().Err(err).Msg("model request failed")
		s.appendMessage(AuthorModel, s.prompts.Copy.RequestFailure)
		s.metrics.exchange(outcomeRequestFailed)
		return true
	}

	payload := ParseResponse(resp)
	reply := payload.Reply
	outcome := outcomeOK
	if reply == "" {
		reply = s.prompts.Copy.MissingReply
		outcome = outcomeMissingReply
	}
	s.metrics.exchange(outcome)

	suggestions := payload.Suggestions()
	s.mu.Lock()
	s.suggestions = suggestions
	s.nextStepLabel = payload.NextStepLabel
	s.mu.Unlock()
	s.publish(events.Event{Type: events.SuggestionsUpdated, Suggestions: suggestions, NextStepLabel: payload.NextStepLabel})

	index := s.appendMessage(AuthorModel, s.prompts.Placeholder)
	if index != placeholderIndex {
		s.logger.Warn().Int("expected", placeholderIndex).Int("index", index).Msg("placeholder index moved")
	}

	s.mu.Lock()
	gen := s.revealer.Start(s.ctx, index, reply, s.finishReveal(index))
	s.revealGen = gen
	s.revealing = true
	s.mu.Unlock()

	s.logger.Debug().Int("index", index).Uint64("generation", gen).Int("suggestions", len(suggestions)).Msg("reveal started")
	return true
}

func (s *Session) finishReveal(index int) func(uint64) {
	return func(gen uint64) {
		if s.endReveal(gen) {
			s.publish(events.Event{Type: events.RevealDone, Index: index})
		}
	}
}

// endReveal clears the revealing flag when gen is the live reveal. A zero
// gen clears it unconditionally.
func (s *Session) endReveal(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != 0 && gen != s.revealGen {
		return false
	}
	s.revealing = false
	return true
}

func (s *Session) writeReveal(index int, text string) {
	if !s.transcript.Update(index, text) {
		s.logger.Warn().Int("index", index).Msg("reveal target is not a model message")
		return
	}
	s.metrics.tick()
	s.publish(events.Event{Type: events.MessageUpdated, Index: index, Author: string(AuthorModel), Text: text})
}

func (s *Session) appendMessage(author Author, text string) int {
	index := s.transcript.Append(Message{Author: author, Text: text})
	s.publish(events.Event{Type: events.MessageAppended, Index: index, Author: string(author), Text: text})
	return index
}

func (s *Session) setBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
	s.publish(events.Event{Type: events.BusyChanged, Busy: busy})
}

func (s *Session) publish(e events.Event) {
	if s.publisher == nil {
		return
	}
	e.SessionID = s.id
	if err := s.publisher.Publish(events.Topic(s.id), e); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(e.Type)).Msg("failed to publish session event")
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		SessionID:     s.id,
		Messages:      s.transcript.Snapshot(),
		Busy:          s.busy,
		Revealing:     s.revealing,
		Initialized:   s.chat != nil,
		Suggestions:   append([]string{}, s.suggestions...),
		NextStepLabel: s.nextStepLabel,
	}
}

// Transcript exposes the session's transcript for read access.
func (s *Session) Transcript() *Transcript { return s.transcript }

// Busy reports whether an exchange is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Wait blocks until reveals started so far have finished.
func (s *Session) Wait() { s.revealer.Wait() }

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close stops any running reveal.
func (s *Session) Close() {
	s.revealer.Cancel()
	s.cancel()
	s.revealer.Wait()
}
