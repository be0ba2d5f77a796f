package llm

import (
	"context"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const jsonMIMEType = "application/json"

type geminiProvider struct {
	client   *genai.Client
	settings Settings
}

func newGeminiProvider(ctx context.Context, s Settings) (*geminiProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(s.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return &geminiProvider{client: client, settings: s}, nil
}

func (p *geminiProvider) NewChat(ctx context.Context) (Chat, error) {
	model := p.client.GenerativeModel(p.settings.Model)
	if p.settings.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.settings.SystemInstruction)}}
	}
	model.ResponseMIMEType = jsonMIMEType
	if p.settings.Temperature != nil {
		model.SetTemperature(*p.settings.Temperature)
	}
	return &geminiChat{model: p.settings.Model, session: model.StartChat()}, nil
}

func (p *geminiProvider) Close() error {
	return p.client.Close()
}

type geminiChat struct {
	model   string
	session *genai.ChatSession
}

func (c *geminiChat) SendMessage(ctx context.Context, text string) (*Response, error) {
	start := time.Now()
	resp, err := c.session.SendMessage(ctx, genai.Text(text))
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("gemini send failed")
		return nil, errors.Wrap(err, "gemini send failed")
	}
	out := fromGenAI(resp)
	flat, _ := out.FlatText()
	log.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Int("candidates", len(out.Candidates)).
		Int("text_len", len(flat)).
		Msg("gemini response received")
	return out, nil
}

// fromGenAI keeps only the text parts of the SDK response. Text is the
// concatenation of candidate 0's text parts, nil when there are none.
func fromGenAI(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		c := Candidate{}
		if cand != nil && cand.Content != nil {
			content := &Content{}
			for _, p := range cand.Content.Parts {
				if t, ok := p.(genai.Text); ok {
					content.Parts = append(content.Parts, Part{Text: string(t)})
				}
			}
			c.Content = content
		}
		out.Candidates = append(out.Candidates, c)
	}
	if len(out.Candidates) > 0 && out.Candidates[0].Content != nil {
		if text, ok := joinParts(out.Candidates[0].Content.Parts); ok {
			out.Text = &text
		}
	}
	return out
}
