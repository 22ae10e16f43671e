// file: cmd/toolwire/secrets.go
package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// runSecretsSet reads one line from stdin and stores it under ref.
func runSecretsSet(cmd *cobra.Command, ref string) error {
	if _, _, err := config.SplitSecretRef(ref); err != nil {
		return err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return errors.Wrap(err, "failed to read secret from stdin")
	}
	if err := config.StoreSecret(ref, strings.TrimRight(line, "\r\n")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored secret. Reference it as %s%s\n", config.KeyringPrefix, strings.TrimPrefix(ref, config.KeyringPrefix))
	return nil
}

// runSecretsCheck probes the OS keyring and prints each step with troubleshooting hints.
func runSecretsCheck(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	res := config.CheckKeyring("probe-" + uuid.NewString())

	fmt.Fprintln(out, "=== Keyring Diagnostics ===")
	fmt.Fprintf(out, "%-18s: %s\n", "Service", config.KeyringCheckService)
	fmt.Fprintf(out, "%-18s: %s\n", "Set Operation", stepStatus(res.SetErr))
	if res.SetErr == nil {
		fmt.Fprintf(out, "%-18s: %s\n", "Get Operation", stepStatus(res.GetErr))
		fmt.Fprintf(out, "%-18s: %t\n", "Get Value Match", res.Match)
		fmt.Fprintf(out, "%-18s: %s\n", "Delete Operation", stepStatus(res.DeleteErr))
	}

	if err := res.Err(); err != nil {
		fmt.Fprintln(out, "\nRecommendations:")
		fmt.Fprintln(out, "1. On macOS, make sure the login keychain is unlocked and allow access when prompted.")
		fmt.Fprintln(out, "2. On Linux, a Secret Service provider such as gnome-keyring must be running on D-Bus.")
		fmt.Fprintln(out, "3. Without a keyring, put plain values in the remote's env or headers instead.")
		return err
	}
	fmt.Fprintln(out, "\nKeyring is working. keyring:service/user references can be resolved.")
	return nil
}

func stepStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return "failed (" + err.Error() + ")"
}
