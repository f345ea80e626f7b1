package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var uploadFile string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a PDF for use as a job source",
	Long:  "Uploads a PDF to the engine and prints the server-assigned file path to reference as pdf_file in a job definition.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(uploadFile)
		if err != nil {
			return eris.Wrap(err, "open file")
		}
		defer f.Close()

		api := newEngineClient()
		resp, err := api.UploadPDF(ctx, filepath.Base(uploadFile), f)
		if err != nil {
			return err
		}
		if !resp.Success {
			return eris.Errorf("upload rejected: %s", resp.Error)
		}

		fmt.Printf("uploaded %s\npdf_file: %s\n", resp.Filename, resp.FilePath)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFile, "file", "", "PDF file to upload (required)")
	_ = uploadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(uploadCmd)
}
