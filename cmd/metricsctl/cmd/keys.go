package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"contribution-metrics/internal/organization/secrets"
)

var genKeyCmd = &cobra.Command{
	Use:   "gen-key",
	Short: "Print a random value for TOKEN_ENCRYPTION_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := secrets.Generate()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}
