package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"contribution-metrics/internal/app"
	id "contribution-metrics/pkg/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [organization-id]",
	Short: "Reconcile contributors with GitHub organization members",
	Long: `sync lists the members of a registered organization on GitHub and creates or
updates the matching contributors. Pass --all to sync every organization.
The report is printed as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return errors.New("pass either an organization id or --all")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if all {
				reports, err := a.Sync.SyncAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reports)
			}
			orgID, err := id.ParseOrganizationID(args[0])
			if err != nil {
				return err
			}
			report, err := a.Sync.SyncOrganization(ctx, orgID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var refreshTokenCmd = &cobra.Command{
	Use:   "refresh-token <organization-id>",
	Short: "Replace an organization's access token with a GitHub App installation token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := id.ParseOrganizationID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			org, err := a.Sync.RefreshToken(ctx, orgID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), org)
		})
	},
}

func init() {
	syncCmd.Flags().Bool("all", false, "Sync every registered organization")
}
