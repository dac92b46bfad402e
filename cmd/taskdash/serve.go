package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/task-dashboard/internal/ai"
	"github.com/nhle/task-dashboard/internal/api"
	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/credential"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the dashboard HTTP API.

The JWT signing secret comes from auth.jwt_secret or TASKDASH_AUTH_JWT_SECRET.
With ai.provider set to "anthropic", the API key is read from ANTHROPIC_API_KEY
or the system keyring (see "taskdash apikey set").

Examples:
  taskdash serve
  taskdash serve --addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMin)*time.Minute)
	if err != nil {
		return fmt.Errorf("configuring auth (set TASKDASH_AUTH_JWT_SECRET): %w", err)
	}

	completer, err := newCompleter()
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	srv := api.NewServer(s, issuer, ai.NewService(completer, logger), logger, api.Options{
		CORSOrigin:          cfg.Server.CORSOrigin,
		RecentActivityLimit: cfg.Insights.RecentActivityLimit,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"event":       "server_start",
			"addr":        cfg.Server.Addr,
			"ai_provider": cfg.AI.Provider,
			"version":     Version,
		}).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.WithField("event", "server_shutdown").Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// newCompleter picks the completion backend named by ai.provider.
func newCompleter() (ai.Completer, error) {
	switch cfg.AI.Provider {
	case "", "mock":
		return ai.MockCompleter{}, nil
	case "anthropic":
		key, err := credential.APIKey()
		if err != nil {
			return nil, fmt.Errorf("reading API key: %w", err)
		}
		client, err := ai.NewClient(ai.ClientConfig{
			APIKey:    key,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
			BaseURL:   cfg.AI.BaseURL,
			Timeout:   time.Duration(cfg.AI.TimeoutSec) * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring AI client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ai.provider %q (want anthropic or mock)", cfg.AI.Provider)
	}
}

// ensureDir creates the parent directory of a file path.
func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
