package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raizian-mentor-backend/internal/config"
	"raizian-mentor-backend/internal/mentor"
	"raizian-mentor-backend/internal/types"
)

func TestBuildWithoutModelKeyReportsInitFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	rt, err := Build(ctx, config.Config{
		AllowedOrigin:   "*",
		LLMProvider:     "gemini",
		PromptFile:      filepath.Join(dir, "missing.yaml"),
		RevealInterval:  config.DefaultRevealInterval,
		RequestTimeout:  time.Second,
		SessionIdleTTL:  time.Minute,
		PreferencesFile: filepath.Join(dir, "prefs.json"),
	})
	require.NoError(t, err)
	defer rt.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hello"}`))
	rec := httptest.NewRecorder()
	rt.Server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted)
	assert.False(t, resp.State.Initialized)
	require.Len(t, resp.State.Messages, 2)
	assert.Equal(t, mentor.DefaultPrompts().Copy.InitFailure, resp.State.Messages[1].Text)
}
