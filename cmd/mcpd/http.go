package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cmarsh/mcpgo/internal/logger"
	"github.com/cmarsh/mcpgo/pkg/config"
	"github.com/cmarsh/mcpgo/pkg/transport"
)

var httpAddr string

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve many sessions over HTTP/SSE",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := buildServer(cfg)
		if err != nil {
			return err
		}

		addr := cfg.HTTP.Addr
		if httpAddr != "" {
			addr = httpAddr
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// With a config file present, watch it so the origin allowlist can
		// be tightened without a restart: the predicate consults the
		// watcher's current config on every request.
		originAllowed := cfg.OriginAllowed()
		if configPath != "" {
			w, err := config.NewWatcher(configPath)
			if err != nil {
				return err
			}
			defer w.Close()
			w.OnChange(func(c *config.Config) {
				logger.Inform("mcpd: config reloaded from", configPath)
			})
			w.Start()
			originAllowed = func(origin string) bool {
				return w.Current().OriginAllowed()(origin)
			}
		}

		tr := transport.NewHTTPServerTransport(addr, originAllowed)

		errCh := make(chan error, 1)
		go func() { errCh <- s.ServeHTTP(ctx, tr) }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		logger.Info("mcpd: listening for HTTP/SSE on", addr)
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

func init() {
	httpCmd.Flags().StringVar(&httpAddr, "addr", "", "HTTP listen address (overrides config)")
}
