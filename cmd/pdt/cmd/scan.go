package cmd

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/price-drop-tracker/internal/api/client"
)

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a price scan now",
		Long: "Ask the server to check every subscription against current prices and\n" +
			"notify users of drops. The command waits for the scan to finish.",
		Example: `  pdt scan
  pdt scan --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient().Scan(cmd.Context())
			if err != nil {
				if apiclient.IsStatus(err, http.StatusConflict) {
					return errors.New("a scan is already running; try again later")
				}
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), res)
			}
			return printScanResult(cmd.OutOrStdout(), res)
		},
	}
}
