// file: cmd/toolwire/main.go

// Package main is the toolwire command line: it serves the MCP runtime and drives MCP
// servers as a client.
//
// Serve over stdio, the way desktop MCP clients launch servers:
//
//	toolwire serve --config toolwire.yaml
//
// Call a tool on a configured remote, or on the built-in registry:
//
//	toolwire tools call echo --args '{"text":"hi"}' --remote files
//	toolwire tools call echo --args '{"text":"hi"}' --local
package main

import (
	"fmt"
	"os"

	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/spf13/cobra"
)

// Build information, set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		logging.GetLogger("main").Error("Command failed.", "error", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "toolwire",
		Short: "MCP tool and resource runtime",
		Long: `toolwire serves registered tools and stored memories over the Model Context
Protocol, and connects to other MCP servers as a client.

Protocol traffic uses stdout in stdio mode; logs always go to stderr.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(
		buildServeCmd(opts),
		buildToolsCmd(opts),
		buildResourcesCmd(opts),
		buildSecretsCmd(),
		buildRegisterCmd(opts),
		buildVersionCmd(),
	)
	return rootCmd
}
