package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kbscrape/scrape-cli/internal/history"
	"github.com/kbscrape/scrape-cli/internal/jobconfig"
)

var (
	submitFile       string
	submitNoWatch    bool
	submitValidate   bool
	submitCustomer   string
	submitURL        string
	submitMaxArts    int
	submitDelaySecs  float64
	submitSourceDesc string
)

// flagDefaultMaxArticles is the per-source default offered to the user when
// adding a source from flags. The builder's own fallback for an absent
// field is 100 (jobconfig.DefaultMaxArticles); the two are intentionally
// different and both part of the external contract.
const flagDefaultMaxArticles = 50

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a scrape job and track it to completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		form, err := loadForm()
		if err != nil {
			return err
		}

		builder := jobconfig.NewBuilder()
		jobCfg, err := builder.Build(*form)
		if err != nil {
			return err
		}

		api := newEngineClient()

		if submitValidate {
			g, gctx := errgroup.WithContext(ctx)
			for _, src := range jobCfg.Sources {
				if src.IsPDF() {
					continue
				}
				g.Go(func() error {
					res, err := api.ValidateURL(gctx, src.URL)
					if err != nil {
						return eris.Wrap(err, "validate url")
					}
					if !res.Valid {
						return eris.Errorf("url %s failed validation: %s", src.URL, res.Error)
					}
					zap.L().Info("url validated", zap.String("url", src.URL), zap.Int("status_code", res.StatusCode))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		}

		store := history.NewStore(api, cfg.Status.HistoryLimit)
		ctrl := newController(api, store, printStatusLine)
		defer ctrl.Close()

		jobID, err := ctrl.Submit(ctx, *jobCfg)
		if err != nil {
			return err
		}
		fmt.Printf("job submitted: %s\n", jobID)

		if submitNoWatch {
			return nil
		}

		select {
		case <-ctrl.Done():
		case <-ctx.Done():
			return ctx.Err()
		}

		if res := ctrl.Results(); res != nil {
			fmt.Printf("fetched %d content items\n", len(res.ContentItems))
		}
		printHistory(store.Entries())
		return nil
	},
}

// loadForm builds form state either from a YAML job file or from the
// single-source flags.
func loadForm() (*jobconfig.FormState, error) {
	if submitFile != "" {
		data, err := os.ReadFile(submitFile)
		if err != nil {
			return nil, eris.Wrap(err, "read job file")
		}
		var form jobconfig.FormState
		if err := yaml.Unmarshal(data, &form); err != nil {
			return nil, eris.Wrap(err, "parse job file")
		}
		return &form, nil
	}

	maxArticles := submitMaxArts
	delay := submitDelaySecs
	return &jobconfig.FormState{
		CustomerName: submitCustomer,
		Sources: []jobconfig.SourceForm{{
			Kind:         "website",
			URL:          submitURL,
			MaxArticles:  &maxArticles,
			DelaySeconds: &delay,
			Description:  submitSourceDesc,
		}},
	}, nil
}

func init() {
	submitCmd.Flags().StringVar(&submitFile, "file", "", "YAML job definition file")
	submitCmd.Flags().BoolVar(&submitNoWatch, "no-watch", false, "submit without tracking progress")
	submitCmd.Flags().BoolVar(&submitValidate, "validate", false, "validate website URLs before submitting")
	submitCmd.Flags().StringVar(&submitCustomer, "customer", "", "customer name (when not using --file)")
	submitCmd.Flags().StringVar(&submitURL, "url", "", "website source URL (when not using --file)")
	submitCmd.Flags().IntVar(&submitMaxArts, "max-articles", flagDefaultMaxArticles, "max articles for the website source")
	submitCmd.Flags().Float64Var(&submitDelaySecs, "delay", 1, "delay between article fetches in seconds")
	submitCmd.Flags().StringVar(&submitSourceDesc, "description", "", "source description")
	rootCmd.AddCommand(submitCmd)
}
