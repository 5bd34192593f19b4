package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/transport"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve one session over stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the JSON-RPC wire; diagnostics must stay on stderr.
		logger.SetLogOutput('e')

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := buildServer(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errCh := make(chan error, 1)
		go func() { errCh <- s.Serve(ctx, transport.NewStdioServerTransport(os.Stdin, os.Stdout)) }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			logger.Info("mcpd: received signal, shutting down", sig)
			cancel()
			return s.Stop(context.Background())
		}
	},
}
