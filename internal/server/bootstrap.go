package server

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"raizian-mentor-backend/internal/config"
	"raizian-mentor-backend/internal/db"
	"raizian-mentor-backend/internal/events"
	"raizian-mentor-backend/internal/llm"
	"raizian-mentor-backend/internal/mentor"
	"raizian-mentor-backend/internal/store"
)

// Runtime is a fully wired server plus the resources it owns.
type Runtime struct {
	Server   *Server
	Sessions *mentor.Registry
	Bus      *events.Bus
	provider llm.Provider
	database *db.DB
}

// LoadPrompts reads the prompt file, falling back to built-in copy when it
// cannot be read.
func LoadPrompts(path string) *mentor.Prompts {
	prompts, err := mentor.LoadPrompts(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("using built-in prompts")
		return mentor.DefaultPrompts()
	}
	return prompts
}

// NewProvider creates the configured model provider. A failure is logged and
// replaced by a provider whose chats never start, so sessions report the
// initialization error in their transcript.
func NewProvider(ctx context.Context, cfg config.Config, prompts *mentor.Prompts) llm.Provider {
	provider, err := llm.NewProvider(ctx, llm.Settings{
		Provider:          cfg.LLMProvider,
		APIKey:            cfg.ModelAPIKey(),
		Model:             cfg.ModelName(),
		SystemInstruction: prompts.System,
	})
	if err != nil {
		log.Error().Err(err).Str("provider", cfg.LLMProvider).Msg("model provider unavailable")
		return llm.Unavailable(err)
	}
	return provider
}

// Build wires every collaborator from cfg. The idle-session sweeper runs
// until ctx is done.
func Build(ctx context.Context, cfg config.Config) (*Runtime, error) {
	prompts := LoadPrompts(cfg.PromptFile)
	provider := NewProvider(ctx, cfg, prompts)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := mentor.NewMetrics(reg)

	bus := events.NewBus(log.Logger)
	sessions := mentor.NewRegistry(mentor.Options{
		Provider:       provider,
		Prompts:        prompts,
		RevealInterval: cfg.RevealInterval,
		RequestTimeout: cfg.RequestTimeout,
		Publisher:      bus,
		Metrics:        metrics,
	}, cfg.SessionIdleTTL)
	go sessions.Run(ctx)

	rt := &Runtime{Sessions: sessions, Bus: bus, provider: provider}
	opts := Options{
		Sessions:    sessions,
		Bus:         bus,
		Prompts:     prompts,
		Preferences: store.NewFilePreferenceStore(cfg.PreferencesFile),
		Gatherer:    reg,
	}

	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			rt.Close()
			return nil, errors.Wrap(err, "initialize database")
		}
		log.Info().Msg("database connection established")
		rt.database = database
		ds := store.NewDatabaseStore(database)
		opts.Database = database
		opts.Feed = ds
		opts.Users = ds
	} else {
		log.Warn().Msg("DB_URL not provided, notifications are kept in memory")
		opts.Feed = store.NewMemoryNotificationFeed()
	}

	if cfg.AuthEnabled() {
		opts.OAuth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       cfg.GoogleScopes,
			Endpoint:     google.Endpoint,
		}
	} else {
		log.Warn().Msg("google sign-in not configured, chat is open to every visitor")
	}

	rt.Server = New(cfg, opts)
	return rt, nil
}

func (rt *Runtime) Close() {
	rt.Sessions.Close()
	if err := rt.Bus.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close event bus")
	}
	if err := rt.provider.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close model provider")
	}
	if rt.database != nil {
		rt.database.Close()
	}
}
