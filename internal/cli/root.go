// Package cli holds the operator commands for the check-in service: minting
// local access tokens, generating field-encryption keys and applying the
// schema.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the checkinctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "checkinctl",
		Short: "Operator tooling for the check-in service",
		Long: `checkinctl helps run the check-in service locally.

Examples:
  # Generate an ENCRYPTION_KEY
  checkinctl keygen

  # Mint a one hour token for a user
  checkinctl token --user 6f1c2a8e-3b7d-4c51-9a0e-2d4f8b6c1e3a

  # Apply the schema using the same environment as the server
  checkinctl migrate`,
		SilenceUsage: true,
	}
	root.AddCommand(newTokenCmd(), newKeygenCmd(), newMigrateCmd())
	return root
}
