package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbscrape/scrape-cli/internal/history"
	"github.com/kbscrape/scrape-cli/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent scrape jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		api := newEngineClient()
		store := history.NewStore(api, cfg.Status.HistoryLimit)
		if err := store.Refresh(ctx); err != nil {
			return err
		}

		printHistory(store.Entries())
		return nil
	},
}

func printHistory(entries []model.JobHistoryEntry) {
	if len(entries) == 0 {
		fmt.Println("no jobs recorded")
		return
	}
	fmt.Printf("%-36s  %-20s  %-10s  %s\n", "JOB", "CUSTOMER", "STATUS", "ITEMS")
	for _, e := range entries {
		items := ""
		if e.Status == model.StatusCompleted {
			items = fmt.Sprintf("%d", e.TotalItems)
		}
		fmt.Printf("%-36s  %-20s  %-10s  %s\n", e.JobID, e.CustomerName, e.Status, items)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
