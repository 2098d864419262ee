// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kb-sync/internal/pipeline"
	"github.com/pdiddy/kb-sync/internal/runlog"
	"github.com/pdiddy/kb-sync/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger server",
	Long: `Serve starts an HTTP server exposing POST /sync to trigger a sync run,
GET /runs to list past runs from the journal, and GET /healthz.

When server.api_key (or the api-access-key secret) is set, /sync and
/runs require a matching X-API-Key header.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := validateDestination(); err != nil {
		return err
	}

	cfg := buildConfig()
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}

	creds := credentialBundle()
	if !creds.Complete() {
		return fmt.Errorf("source credentials incomplete: provide sf-client-id, sf-client-secret, sf-username, and sf-password via the secrets directory or configuration")
	}

	var journal pipeline.Journal
	var history server.Journal
	if cfg.RunLogPath != "" {
		store, err := runlog.Open(cfg.RunLogPath)
		if err != nil {
			return err
		}
		defer store.Close()
		journal = store
		history = store
	}

	runner := newRunner(cfg, creds, journal)
	handler := server.NewHandler(runner, history, version)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.New(handler, cfg.Server.APIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // a sync run streams progress for its full duration
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stdout, "listening on %s\n", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-quit:
		fmt.Fprintf(os.Stdout, "received %s, shutting down\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}
