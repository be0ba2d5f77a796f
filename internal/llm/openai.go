package llm

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

type openAIProvider struct {
	client   *openai.Client
	settings Settings
}

func newOpenAIProvider(s Settings) *openAIProvider {
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return &openAIProvider{client: openai.NewClientWithConfig(cfg), settings: s}
}

func (p *openAIProvider) NewChat(context.Context) (Chat, error) {
	c := &openAIChat{client: p.client, settings: p.settings}
	if p.settings.SystemInstruction != "" {
		c.history = append(c.history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.settings.SystemInstruction,
		})
	}
	return c, nil
}

func (p *openAIProvider) Close() error { return nil }

// openAIChat keeps the running history itself since the chat completions API
// is stateless.
type openAIChat struct {
	mu       sync.Mutex
	client   *openai.Client
	settings Settings
	history  []openai.ChatCompletionMessage
}

func (c *openAIChat) SendMessage(ctx context.Context, text string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	messages := make([]openai.ChatCompletionMessage, 0, len(c.history)+1)
	messages = append(messages, c.history...)
	messages = append(messages, user)

	req := openai.ChatCompletionRequest{
		Model:          c.settings.Model,
		Messages:       messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	if c.settings.Temperature != nil {
		req.Temperature = *c.settings.Temperature
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("model", c.settings.Model).Msg("openai completion failed")
		return nil, errors.Wrap(err, "openai completion failed")
	}

	out := &Response{}
	for _, choice := range resp.Choices {
		out.Candidates = append(out.Candidates, Candidate{
			Content: &Content{Parts: []Part{{Text: choice.Message.Content}}},
		})
	}
	if len(resp.Choices) > 0 {
		reply := resp.Choices[0].Message
		out.Text = &reply.Content
		c.history = append(c.history, user, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: reply.Content,
		})
	}
	log.Debug().
		Str("model", c.settings.Model).
		Dur("duration", time.Since(start)).
		Int("choices", len(resp.Choices)).
		Msg("openai response received")
	return out, nil
}
