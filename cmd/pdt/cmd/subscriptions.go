package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/price-drop-tracker/internal/api/client"
)

func subscribeCmd() *cobra.Command {
	var link string

	cmd := &cobra.Command{
		Use:   "subscribe <query...>",
		Short: "Subscribe a user to a product query",
		Long: "Subscribe a user to a free-text product query. The current cheapest\n" +
			"listing becomes the reference price; the user is notified when a scan\n" +
			"finds a price at least 10% below it.",
		Example: `  pdt subscribe --user 123456789 LG OLED 55
  pdt subscribe --user 123456789 "iphone 15 128gb" --url https://shop.example/iphone`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := userID(cmd)
			if err != nil {
				return err
			}

			sub, created, err := newClient().Subscribe(cmd.Context(), uid, strings.Join(args, " "), link)
			if err != nil {
				if apiclient.IsStatus(err, http.StatusBadRequest) {
					return fmt.Errorf("invalid query: %w", err)
				}
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), sub)
			}
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "Subscription created.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Already subscribed; subscription updated.")
			}
			return printSubscriptionDetail(cmd.OutOrStdout(), sub)
		},
	}

	addUserFlag(cmd)
	cmd.Flags().StringVar(&link, "url", "", "link to include in drop notifications")

	return cmd
}

func subscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"list"},
		Short:   "List a user's subscriptions",
		Example: `  pdt subscriptions --user 123456789
  PDT_USER=123456789 pdt subscriptions --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := userID(cmd)
			if err != nil {
				return err
			}

			subs, err := newClient().ListSubscriptions(cmd.Context(), uid)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), subs)
			}
			if len(subs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No subscriptions found.")
				return nil
			}
			return printSubscriptionsTable(cmd.OutOrStdout(), subs)
		},
	}

	addUserFlag(cmd)
	return cmd
}

func unsubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "unsubscribe <id>",
		Short:   "Remove a subscription",
		Example: `  pdt unsubscribe --user 123456789 6f1c7f5e-2d7c-4d47-9a38-0b1f3d1f3c11`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := userID(cmd)
			if err != nil {
				return err
			}

			removed, err := newClient().Unsubscribe(cmd.Context(), uid, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("subscription %s not found for user %d", args[0], uid)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscription %s removed.\n", args[0])
			return nil
		},
	}

	addUserFlag(cmd)
	return cmd
}
