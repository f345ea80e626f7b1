package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateURLFlag string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a URL is reachable before adding it to a job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		api := newEngineClient()
		res, err := api.ValidateURL(ctx, validateURLFlag)
		if err != nil {
			return err
		}

		if !res.Valid {
			fmt.Printf("invalid: %s\n", res.Error)
			return nil
		}
		fmt.Printf("valid (HTTP %d, %s)\n", res.StatusCode, res.ContentType)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateURLFlag, "url", "", "URL to validate (required)")
	_ = validateCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(validateCmd)
}
