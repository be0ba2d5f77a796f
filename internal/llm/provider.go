package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingCredential is returned when no API key is configured for the
// selected provider.
var ErrMissingCredential = errors.New("model API key is not configured")

// Chat is one live conversation with the model. Implementations keep the
// conversation history between calls.
type Chat interface {
	SendMessage(ctx context.Context, text string) (*Response, error)
}

// Provider creates chats pre-seeded with the system instruction and a JSON
// response format.
type Provider interface {
	NewChat(ctx context.Context) (Chat, error)
	Close() error
}

type Settings struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	SystemInstruction string
	Temperature       *float32
}

// NewProvider builds the provider named in s. An empty API key yields
// ErrMissingCredential.
func NewProvider(ctx context.Context, s Settings) (Provider, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "gemini":
		return newGeminiProvider(ctx, s)
	case "openai":
		return newOpenAIProvider(s), nil
	}
	return nil, errors.Errorf("unknown model provider %q", s.Provider)
}

type unavailable struct {
	err error
}

// Unavailable returns a Provider whose chats can never be created. It lets
// callers keep serving after a failed initialization.
func Unavailable(err error) Provider {
	if err == nil {
		err = ErrMissingCredential
	}
	return unavailable{err: err}
}

func (u unavailable) NewChat(context.Context) (Chat, error) { return nil, u.err }

func (u unavailable) Close() error { return nil }
