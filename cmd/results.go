package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbscrape/scrape-cli/internal/render"
)

var (
	resultsJobID   string
	resultsRaw     bool
	resultsBaseURL string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Fetch and render the results of a completed job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		api := newEngineClient()
		res, err := api.GetJobResults(ctx, resultsJobID)
		if err != nil {
			return err
		}

		types, groups := res.GroupByType()
		for _, t := range types {
			fmt.Printf("== %s (%d) ==\n", t, len(groups[t]))
			for _, item := range groups[t] {
				fmt.Printf("\n--- %s", item.Title)
				if item.SourceURL != "" {
					fmt.Printf(" (%s)", item.SourceURL)
				}
				fmt.Println(" ---")

				if resultsRaw {
					fmt.Println(render.RenderRaw(item.Content))
					continue
				}
				base := resultsBaseURL
				if base == "" {
					base = item.SourceURL
				}
				fmt.Println(render.Render(item.Content, base))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	resultsCmd.Flags().StringVar(&resultsJobID, "job", "", "job id (required)")
	resultsCmd.Flags().BoolVar(&resultsRaw, "raw", false, "print escaped original text instead of formatted markup")
	resultsCmd.Flags().StringVar(&resultsBaseURL, "base-url", "", "base URL for resolving relative image links")
	_ = resultsCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(resultsCmd)
}
