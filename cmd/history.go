package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/store"
)

var (
	historyLimit   int
	historyVerdict string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded reviews",
	Long: `Browse reviews recorded to the local history database.

Running bare 'codereview history' is the same as 'codereview history list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a review by id or unique prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyShowRun(cmd, args[0])
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a review by id or unique prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyDeleteRun(cmd, args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum reviews to show (0 for all)")
		c.Flags().StringVar(&historyVerdict, "verdict", "", "Filter by verdict (errors, improvement, correct)")
	}
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyListRun(cmd *cobra.Command) error {
	verdict := models.Verdict(historyVerdict)
	switch verdict {
	case "", models.VerdictErrors, models.VerdictImprovement, models.VerdictCorrect:
	default:
		return fmt.Errorf("unknown verdict %q (want errors, improvement or correct)", historyVerdict)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	records, err := s.ListReviews(cmd.Context(), store.ReviewListFilter{Verdict: verdict, Limit: historyLimit})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ui.Info("No reviews recorded yet")
		return nil
	}
	return ui.History(records)
}

func historyShowRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	rec, err := s.FindReview(cmd.Context(), id)
	if err != nil {
		return err
	}
	return ui.ReviewRecord(rec)
}

func historyDeleteRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	rec, err := s.FindReview(cmd.Context(), id)
	if err != nil {
		return err
	}
	if err := s.DeleteReview(cmd.Context(), rec.ID); err != nil {
		return err
	}
	ui.Success("Deleted review %s", rec.ID)
	return nil
}
