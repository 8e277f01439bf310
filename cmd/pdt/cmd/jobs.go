package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/price-drop-tracker/internal/engine"
)

func jobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "View scan history",
		Long: "View the execution history of scheduled and manual scans. Each run\n" +
			"records status, duration, notifications sent, and any errors.",
	}

	jobsRoot.AddCommand(
		jobsListCmd(),
		jobsHistoryCmd(),
	)

	return jobsRoot
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show scheduler state and the latest run per job",
		Example: `  pdt jobs list
  pdt jobs list --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ov, err := newClient().ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), ov)
			}
			if err := printSchedulerState(cmd.OutOrStdout(), ov); err != nil {
				return err
			}
			if len(ov.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No job runs found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return printJobRunsTable(cmd.OutOrStdout(), ov.Jobs)
		},
	}
}

func jobsHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [job_name]",
		Short: "Show run history for a job",
		Args:  cobra.MaximumNArgs(1),
		Example: `  pdt jobs history
  pdt jobs history price_scan --limit 5 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := engine.JobPriceScan
			if len(args) == 1 {
				name = args[0]
			}

			runs, err := newClient().GetJobHistory(cmd.Context(), name, limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No runs found for job %q.\n", name)
				return nil
			}
			return printJobRunsTable(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum runs to show (server default when 0)")
	return cmd
}

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the price oracle call quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := newClient().GetQuota(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), q)
			}
			return printQuota(cmd.OutOrStdout(), q)
		},
	}
}
