// file: cmd/toolwire/commands.go
package main

import (
	"github.com/spf13/cobra"
)

// targetOptions selects the server a client command talks to.
type targetOptions struct {
	remote string
	local  bool
	seed   string
}

func (t *targetOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.remote, "remote", "", "Name of a configured remote MCP server")
	cmd.Flags().BoolVar(&t.local, "local", false, "Use the built-in server in this process")
	cmd.Flags().StringVar(&t.seed, "seed", "", "YAML file of memories to load into the built-in server (with --local)")
	cmd.MarkFlagsMutuallyExclusive("remote", "local")
	cmd.MarkFlagsOneRequired("remote", "local")
}

// buildServeCmd creates the "serve" command.
func buildServeCmd(g *globalOptions) *cobra.Command {
	var (
		transportKind string
		addr          string
		seed          string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tools and memories over MCP",
		Long: `Run the MCP server until interrupted.

In stdio mode requests are read from stdin and responses written to stdout, one JSON
message per line. In http mode each POST to / or /mcp carries one message.`,
		Example: `  toolwire serve
  toolwire serve --transport http --addr 127.0.0.1:8080 --seed memories.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, transportKind, addr, seed)
		},
	}
	cmd.Flags().StringVar(&transportKind, "transport", "", "stdio or http (overrides config)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address for http mode (overrides config host and port)")
	cmd.Flags().StringVar(&seed, "seed", "", "YAML file of memories to load at startup")
	return cmd
}

// buildToolsCmd creates the "tools" command group.
func buildToolsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and call tools on an MCP server",
	}
	cmd.AddCommand(buildToolsListCmd(g), buildToolsCallCmd(g))
	return cmd
}

func buildToolsListCmd(g *globalOptions) *cobra.Command {
	var target targetOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsList(cmd, g, target)
		},
	}
	target.bind(cmd)
	return cmd
}

func buildToolsCallCmd(g *globalOptions) *cobra.Command {
	var (
		target  targetOptions
		rawArgs string
	)
	cmd := &cobra.Command{
		Use:     "call <tool>",
		Short:   "Call a tool",
		Example: `  toolwire tools call echo --args '{"text":"hello","repeat":2}' --local`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsCall(cmd, g, target, args[0], rawArgs)
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVar(&rawArgs, "args", "{}", "Tool arguments as a JSON object")
	return cmd
}

// buildResourcesCmd creates the "resources" command group.
func buildResourcesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List and read resources on an MCP server",
	}
	cmd.AddCommand(buildResourcesListCmd(g), buildResourcesReadCmd(g))
	return cmd
}

func buildResourcesListCmd(g *globalOptions) *cobra.Command {
	var target targetOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResourcesList(cmd, g, target)
		},
	}
	target.bind(cmd)
	return cmd
}

func buildResourcesReadCmd(g *globalOptions) *cobra.Command {
	var target targetOptions
	cmd := &cobra.Command{
		Use:     "read <uri>",
		Short:   "Read one resource",
		Example: `  toolwire resources read memory://greeting --local --seed memories.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResourcesRead(cmd, g, target, args[0])
		},
	}
	target.bind(cmd)
	return cmd
}

// buildSecretsCmd creates the "secrets" command group for keyring-backed env values.
func buildSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage secrets referenced as keyring:service/user in remote env and headers",
	}
	cmd.AddCommand(buildSecretsSetCmd(), buildSecretsCheckCmd())
	return cmd
}

func buildSecretsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <service/user>",
		Short: "Store a secret read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretsSet(cmd, args[0])
		},
	}
	return cmd
}

func buildSecretsCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the OS keyring can store and read secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretsCheck(cmd)
		},
	}
	return cmd
}

// buildRegisterCmd creates the "register" command.
func buildRegisterCmd(g *globalOptions) *cobra.Command {
	var (
		name       string
		clientPath string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Add this server to a desktop MCP client's configuration",
		Long: `Write an mcpServers entry that launches "toolwire serve" over stdio into the
desktop client's JSON configuration. Other entries in the file are preserved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, g, name, clientPath)
		},
	}
	cmd.Flags().StringVar(&name, "name", "toolwire", "Server name under mcpServers")
	cmd.Flags().StringVar(&clientPath, "client-config", "", "Client configuration file (defaults to the platform location)")
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			runVersion(cmd)
		},
	}
}
