package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseAccessors(t *testing.T) {
	var nilResp *Response
	_, ok := nilResp.FlatText()
	assert.False(t, ok)
	_, ok = nilResp.PartText()
	assert.False(t, ok)

	r := TextResponse("hello")
	flat, ok := r.FlatText()
	require.True(t, ok)
	assert.Equal(t, "hello", flat)
	part, ok := r.PartText()
	require.True(t, ok)
	assert.Equal(t, "hello", part)

	empty := &Response{Candidates: []Candidate{{Content: &Content{Parts: []Part{{Text: ""}}}}}}
	_, ok = empty.PartText()
	assert.False(t, ok)
}

func TestFromGenAIKeepsTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"reply":`), genai.Text(`"hi"}`)}}},
			{Content: nil},
		},
	}
	out := fromGenAI(resp)
	require.Len(t, out.Candidates, 2)
	flat, ok := out.FlatText()
	require.True(t, ok)
	assert.Equal(t, `{"reply":"hi"}`, flat)
	part, ok := out.PartText()
	require.True(t, ok)
	assert.Equal(t, `{"reply":`, part)
	assert.Nil(t, out.Candidates[1].Content)
}

func TestFromGenAINoText(t *testing.T) {
	out := fromGenAI(&genai.GenerateContentResponse{})
	_, ok := out.FlatText()
	assert.False(t, ok)
	assert.NotNil(t, fromGenAI(nil))
}

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(context.Background(), Settings{Provider: "gemini"})
	assert.True(t, errors.Is(err, ErrMissingCredential))

	_, err = NewProvider(context.Background(), Settings{Provider: "llama", APIKey: "k"})
	assert.Error(t, err)
}

func TestUnavailableProvider(t *testing.T) {
	boom := errors.New("boom")
	p := Unavailable(boom)
	_, err := p.NewChat(context.Background())
	assert.Equal(t, boom, err)
	assert.NoError(t, p.Close())

	_, err = Unavailable(nil).NewChat(context.Background())
	assert.Equal(t, ErrMissingCredential, err)
}

func TestOpenAIChatKeepsHistory(t *testing.T) {
	var requests []openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "cmpl-1",
			Object: "chat.completion",
			Choices: []openai.ChatCompletionChoice{{
				Index:   0,
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"reply":"ok"}`},
			}},
		})
	}))
	defer srv.Close()

	p, err := NewProvider(context.Background(), Settings{
		Provider:          "openai",
		APIKey:            "sk-test",
		Model:             "gpt-test",
		BaseURL:           srv.URL + "/v1",
		SystemInstruction: "respond in JSON",
	})
	require.NoError(t, err)
	chat, err := p.NewChat(context.Background())
	require.NoError(t, err)

	resp, err := chat.SendMessage(context.Background(), "first")
	require.NoError(t, err)
	flat, ok := resp.FlatText()
	require.True(t, ok)
	assert.Equal(t, `{"reply":"ok"}`, flat)

	_, err = chat.SendMessage(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Equal(t, "gpt-test", requests[0].Model)
	require.NotNil(t, requests[0].ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, requests[0].ResponseFormat.Type)
	require.Len(t, requests[0].Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, requests[0].Messages[0].Role)
	// system, first, reply, second
	require.Len(t, requests[1].Messages, 4)
	assert.Equal(t, "second", requests[1].Messages[3].Content)
}

func TestOpenAIChatSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"down"}}`))
	}))
	defer srv.Close()

	p, err := NewProvider(context.Background(), Settings{Provider: "openai", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	chat, err := p.NewChat(context.Background())
	require.NoError(t, err)
	_, err = chat.SendMessage(context.Background(), "hi")
	assert.Error(t, err)
}
