// file: cmd/toolwire/handlers.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/client"
	"github.com/dkoosis/toolwire/internal/mcp/server"
	"github.com/dkoosis/toolwire/internal/memory"
	"github.com/dkoosis/toolwire/internal/metrics"
	"github.com/dkoosis/toolwire/internal/tools"
	"github.com/dkoosis/toolwire/internal/transport"
	"github.com/spf13/cobra"
)

const metricsErrorBuffer = 50

// loadConfig reads the configuration named by --config, or the defaults, and installs
// the default logger at the configured level.
func loadConfig(g *globalOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath == "" {
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadFromFile(g.configPath)
		if err != nil {
			return nil, err
		}
	}
	level := cfg.Logging.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	if err := logging.SetupDefaultLogger(level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildServer wires the built-in registry and the configured store into a Server. The
// returned func releases the store.
func buildServer(ctx context.Context, cfg *config.Config, seed string, collector *metrics.Collector) (*server.Server, func(), error) {
	logger := logging.GetLogger("serve")
	registry := tools.NewRegistry(logging.GetLogger("tools")).MustRegister(tools.NewEcho())

	store, err := memory.Open(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("Failed to close memory store.", "error", err)
			}
		}
	}
	if seed != "" {
		n, err := memory.LoadSeed(ctx, store, seed)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		logger.Info("Loaded seed memories.", "count", n, "path", seed)
	}

	opts := server.OptionsFromConfig(cfg.Server, version)
	opts.Logger = logging.GetLogger("server")
	opts.Metrics = collector
	return server.New(registry, store, opts), closeStore, nil
}

// runServe handles the serve command.
func runServe(cmd *cobra.Command, g *globalOptions, transportKind, addr, seed string) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if transportKind != "" {
		cfg.Server.Transport = config.TransportKind(transportKind)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, closeStore, err := buildServer(ctx, cfg, seed, metrics.NewCollector(metricsErrorBuffer))
	if err != nil {
		return err
	}
	defer closeStore()

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		if addr == "" {
			addr = cfg.Server.Addr()
		}
		return srv.ListenAndServe(ctx, addr)
	default:
		err := srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			logging.GetLogger("serve").Info("Stopped serving.", "server", cfg.Server.Name)
			return nil
		}
		return err
	}
}

// connectTarget returns a connected client for --remote or --local. The returned func
// closes the client and anything built for it.
func connectTarget(cmd *cobra.Command, g *globalOptions, target targetOptions) (*client.Client, func(), error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	if target.seed != "" && !target.local {
		return nil, nil, errors.New("--seed is only supported with --local")
	}

	collector := metrics.NewCollector(metricsErrorBuffer)
	logger := logging.GetLogger("client")
	opts := []client.Option{client.WithLogger(logger), client.WithMetrics(collector)}
	cleanup := func() {}

	var remote config.RemoteServer
	if target.local {
		srv, closeStore, err := buildServer(cmd.Context(), cfg, target.seed, collector)
		if err != nil {
			return nil, nil, err
		}
		cleanup = closeStore
		remote = config.RemoteServer{
			Name:           "local",
			Transport:      config.TransportInProcess,
			RequestTimeout: cfg.Server.RequestTimeout,
			Reconnect:      config.ReconnectConfig{MaxAttempts: 1},
		}
		opts = append(opts, client.WithTransportFactory(func(config.RemoteServer, transport.Options) (transport.Transport, error) {
			return transport.NewInMemoryTransport(srv.HandleMessage), nil
		}))
	} else {
		remote, err = cfg.Remote(target.remote)
		if err != nil {
			return nil, nil, err
		}
	}

	c, err := client.New(remote, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := c.Connect(cmd.Context()); err != nil {
		_ = c.Close()
		cleanup()
		return nil, nil, err
	}
	return c, func() {
		if err := c.Close(); err != nil {
			logger.Debug("Error closing client.", "error", err)
		}
		cleanup()
	}, nil
}

// runToolsList handles the tools list command.
func runToolsList(cmd *cobra.Command, g *globalOptions, target targetOptions) error {
	c, done, err := connectTarget(cmd, g, target)
	if err != nil {
		return err
	}
	defer done()

	defs, err := c.ListTools(cmd.Context())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), defs)
}

// runToolsCall handles the tools call command. A tool-level failure is printed and
// then returned as an error so the exit status reflects it.
func runToolsCall(cmd *cobra.Command, g *globalOptions, target targetOptions, name, rawArgs string) error {
	if !json.Valid([]byte(rawArgs)) {
		return errors.Newf("--args is not valid JSON: %s", rawArgs)
	}
	c, done, err := connectTarget(cmd, g, target)
	if err != nil {
		return err
	}
	defer done()

	result, err := c.CallTool(cmd.Context(), name, json.RawMessage(rawArgs))
	if err != nil {
		return err
	}
	if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if result.IsError {
		return errors.Newf("tool %q reported an error: %s", name, result.Text())
	}
	return nil
}

// runResourcesList handles the resources list command.
func runResourcesList(cmd *cobra.Command, g *globalOptions, target targetOptions) error {
	c, done, err := connectTarget(cmd, g, target)
	if err != nil {
		return err
	}
	defer done()

	defs, err := c.ListResources(cmd.Context())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), defs)
}

// runResourcesRead handles the resources read command.
func runResourcesRead(cmd *cobra.Command, g *globalOptions, target targetOptions, uri string) error {
	c, done, err := connectTarget(cmd, g, target)
	if err != nil {
		return err
	}
	defer done()

	result, err := c.ReadResource(cmd.Context(), uri)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func runVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "toolwire %s\n", version)
	fmt.Fprintf(out, "commit: %s\n", commit)
	fmt.Fprintf(out, "built:  %s\n", date)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
