// Package main is the entry point for the citenet CLI, which builds citation
// networks and inspects PubMed records from the command line.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/citation-network-service/internal/app"
	"github.com/helixir/citation-network-service/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the citenet CLI.
var rootCmd = &cobra.Command{
	Use:     "citenet",
	Short:   "Build PubMed citation networks",
	Version: version,
	Long: `citenet builds the citation network around a PubMed article using the same
configuration as the HTTP service (CITENET_* environment variables or
config.yaml). Output is JSON on stdout; logs go to stderr.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level for diagnostics on stderr")
}

// loadRuntime loads config and a stderr logger for a subcommand.
func loadRuntime(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logCfg := cfg.Logging
	logCfg.Level = level
	logCfg.Output = "stderr"
	logCfg.Format = "console"

	return cfg, app.NewLogger(logCfg), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
