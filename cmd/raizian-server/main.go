package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"raizian-mentor-backend/internal/config"
	"raizian-mentor-backend/internal/db"
	"raizian-mentor-backend/internal/events"
	"raizian-mentor-backend/internal/logging"
	"raizian-mentor-backend/internal/mentor"
	"raizian-mentor-backend/internal/server"
)

func main() {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "raizian-server",
		Short:         "Raizian mentor chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			return logging.Setup(cfg.LogLevel, cfg.LogFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations to DB_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Chat with the mentor in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return chat(cmd.Context(), cfg)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	rt, err := server.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rt.Server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("raizian server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, cfg config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DB_URL is required to run migrations")
	}
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := database.RunMigrations(ctx, cfg.MigrationsDir)
	if err != nil {
		return err
	}
	log.Info().Int("applied", n).Msg("database migrations completed")
	return nil
}

// chat drives one session from stdin and renders the reveal from the bus.
func chat(ctx context.Context, cfg config.Config) error {
	prompts := server.LoadPrompts(cfg.PromptFile)
	provider := server.NewProvider(ctx, cfg, prompts)
	defer provider.Close()

	bus := events.NewBus(log.Logger)
	defer bus.Close()

	sess := mentor.NewSession(ctx, "terminal", mentor.Options{
		Provider:       provider,
		Prompts:        prompts,
		RevealInterval: cfg.RevealInterval,
		RequestTimeout: cfg.RequestTimeout,
		Publisher:      bus,
	})
	defer sess.Close()

	for _, m := range sess.State().Messages {
		fmt.Printf("mentor> %s\n", m.Text)
	}

	sub, err := bus.Subscribe(ctx, events.Topic(sess.ID()))
	if err != nil {
		return err
	}
	done := make(chan struct{}, 1)
	go renderReveal(sub, done)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !in.Scan() {
			return in.Err()
		}
		text := strings.TrimSpace(in.Text())
		if text == "" {
			continue
		}
		if !sess.Submit(ctx, text) {
			fmt.Println("(mentor is unavailable)")
			continue
		}
		state := sess.State()
		last := state.Messages[len(state.Messages)-1]
		if !state.Revealing {
			fmt.Printf("mentor> %s\n", last.Text)
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil
		}
		if len(state.Suggestions) > 0 {
			fmt.Printf("  try: %s\n", strings.Join(state.Suggestions, " | "))
		}
		if state.NextStepLabel != "" {
			fmt.Printf("  next: %s\n", state.NextStepLabel)
		}
	}
}

func renderReveal(sub <-chan events.Event, done chan<- struct{}) {
	for e := range sub {
		switch e.Type {
		case events.MessageUpdated:
			fmt.Printf("\rmentor> %s", e.Text)
		case events.RevealDone:
			fmt.Println()
			select {
			case done <- struct{}{}:
			default:
			}
		}
	}
}
