package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/price-drop-tracker/internal/api/client"
)

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Show current listings for a product query",
		Long: "Ask the price oracle for a query's current listings without subscribing.\n" +
			"The cheapest listing is the reference price a subscription would start from.",
		Example: `  pdt search LG OLED 55
  pdt search "iphone 15 128gb" --limit 5 --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			res, err := newClient().Search(cmd.Context(), query, limit)
			if err != nil {
				if apiclient.IsStatus(err, http.StatusBadRequest) {
					return fmt.Errorf("invalid query: %w", err)
				}
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), res)
			}
			if len(res.Listings) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No listings found for %q.\n", res.Query)
				return nil
			}
			if err := printSearchResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nTo be notified of a 10%% drop: pdt subscribe --user <id> %s\n", res.Query)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum listings to show (server default 10)")

	return cmd
}
