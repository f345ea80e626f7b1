package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	downloadJobID string
	downloadOut   string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a job's results file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		out, err := os.Create(downloadOut)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer out.Close()

		api := newEngineClient()
		if err := api.DownloadResults(ctx, downloadJobID, out); err != nil {
			return err
		}

		zap.L().Info("results downloaded",
			zap.String("job_id", downloadJobID),
			zap.String("path", downloadOut),
		)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadJobID, "job", "", "job id (required)")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "results.json", "output file path")
	_ = downloadCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(downloadCmd)
}
