package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbscrape/scrape-cli/internal/history"
)

var watchJobID string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track an already-submitted job to completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		api := newEngineClient()
		store := history.NewStore(api, cfg.Status.HistoryLimit)
		ctrl := newController(api, store, printStatusLine)
		defer ctrl.Close()

		ctrl.Track(ctx, watchJobID)

		select {
		case <-ctrl.Done():
		case <-ctx.Done():
			return ctx.Err()
		}

		if res := ctrl.Results(); res != nil {
			fmt.Printf("fetched %d content items\n", len(res.ContentItems))
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchJobID, "job", "", "job id (required)")
	_ = watchCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(watchCmd)
}
