// file: cmd/toolwire/register.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// mcpServerEntry is one entry under "mcpServers" in a desktop client's configuration.
type mcpServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// runRegister handles the register command.
func runRegister(cmd *cobra.Command, g *globalOptions, name, clientPath string) error {
	exePath, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to determine executable path")
	}
	if clientPath == "" {
		clientPath = defaultClientConfigPath()
	}

	entry := mcpServerEntry{Command: exePath, Args: []string{"serve", "--transport", "stdio"}}
	if g.configPath != "" {
		abs, err := filepath.Abs(g.configPath)
		if err != nil {
			return errors.Wrap(err, "failed to resolve config path")
		}
		entry.Args = append(entry.Args, "--config", abs)
	}

	if err := registerServer(clientPath, name, entry); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\n", name, clientPath)
	return nil
}

// registerServer sets mcpServers[name] in the JSON file at path, creating the file if
// needed. Every other key in the file is kept as it was.
func registerServer(path, name string, entry mcpServerEntry) error {
	doc := map[string]json.RawMessage{}
	// #nosec G304 -- path is the operator's own client configuration.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "existing client configuration %s is not a JSON object", path)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return errors.Wrap(err, "failed to read client configuration")
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return errors.Wrap(err, "mcpServers in client configuration is not an object")
		}
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode server entry")
	}
	servers[name] = encoded
	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return errors.Wrap(err, "failed to encode mcpServers")
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode client configuration")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create client configuration directory")
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return errors.Wrap(err, "failed to write client configuration")
	}
	return nil
}

// defaultClientConfigPath is where the Claude desktop app keeps its configuration.
func defaultClientConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(homeDir, "Library", "Application Support", "Claude")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "Claude")
	default:
		dir = filepath.Join(homeDir, ".config", "Claude")
	}
	return filepath.Join(dir, "claude_desktop_config.json")
}
