package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := fieldcrypt.GenerateKey(nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
