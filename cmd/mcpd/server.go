package main

import (
	"fmt"

	"github.com/cmarsh/mcpgo/pkg/config"
	"github.com/cmarsh/mcpgo/pkg/server"
	"github.com/cmarsh/mcpgo/pkg/tools"
)

// loadConfig reads the --config file if given, falling back to
// config.Default() so mcpd runs out of the box with no flags at all.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildServer assembles a server.Server from cfg, seeded with the bundled
// demo tools (echo, calculator, current_time); sample prompts are already
// seeded by prompts.New, which server.New calls internally. WithConfig
// already covers instructions, logging, pool size, timeout, and default
// log level, so no further Options are needed here.
func buildServer(cfg *config.Config) (*server.Server, error) {
	s := server.NewFromConfig(cfg)

	if err := s.AddTool(tools.EchoTool(), tools.HandleEchoTool); err != nil {
		return nil, fmt.Errorf("mcpd: register echo tool: %w", err)
	}
	if err := s.AddTool(tools.CalculatorTool(), tools.HandleCalculatorTool); err != nil {
		return nil, fmt.Errorf("mcpd: register calculator tool: %w", err)
	}
	if err := s.AddTool(tools.DateTimeTool(), tools.HandleDateTimeTool); err != nil {
		return nil, fmt.Errorf("mcpd: register current_time tool: %w", err)
	}
	return s, nil
}
