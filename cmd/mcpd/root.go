// Command mcpd runs the protocol engine as a standalone server, in either
// stdio or HTTP/SSE mode.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cmarsh/mcpgo/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mcpd",
	Short: "Run the mcpgo protocol engine server",
	Long: `mcpd assembles the tool, prompt, and resource registries into a
running MCP server and serves it over stdio or HTTP/SSE, configured from a
YAML file and overridable by flag.`,
}

func Execute() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults built in if omitted)")
	rootCmd.AddCommand(stdioCmd)
	rootCmd.AddCommand(httpCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	logger.SetShowDateTime(true)
	Execute()
}
