package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-imagen-client/internal/config"
	"github.com/jrsteele09/go-imagen-client/internal/testsupport/fakeapi"
	"github.com/spf13/cobra"
)

// newDevServerCommand serves the in-process fake backend, for trying the
// client without an account.
func newDevServerCommand(ctx *commandContext) *cobra.Command {
	var (
		addr         string
		refreshDelay time.Duration
	)
	cmd := &cobra.Command{
		Use:    "dev-server",
		Short:  "Run a local fake of the generation API",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			displayAppname(cfg.GetAppName())

			api := fakeapi.New(
				fakeapi.WithRefreshPath(cfg.GetRefreshPath()),
				fakeapi.WithRefreshDelay(refreshDelay),
			)
			server := &http.Server{Addr: addr, Handler: api, ReadHeaderTimeout: 5 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				errCh <- listenAndServe(server)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Fake API listening on %s (login %s / %s)\n", addr, fakeapi.DefaultEmail, fakeapi.DefaultPassword)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			return shutdown(server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8000", "Listen address")
	cmd.Flags().DurationVar(&refreshDelay, "refresh-delay", 0, "Delay every token refresh")
	return cmd
}

func listenAndServe(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func newVersionCommand(_ *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(config.New().GetAppName())
			fmt.Fprintf(cmd.OutOrStdout(), "imagenctl %s\n", version)
			return nil
		},
	}
}
