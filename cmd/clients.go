package main

import (
	"fmt"

	"github.com/kbscrape/scrape-cli/internal/controller"
	"github.com/kbscrape/scrape-cli/internal/history"
	"github.com/kbscrape/scrape-cli/internal/model"
	"github.com/kbscrape/scrape-cli/internal/status"
	"github.com/kbscrape/scrape-cli/pkg/scrapeapi"
)

func newEngineClient() scrapeapi.Client {
	return scrapeapi.NewClient(scrapeapi.WithBaseURL(cfg.Engine.BaseURL))
}

func newStatusChannel(api scrapeapi.Client) *status.Channel {
	push := scrapeapi.NewWSTransport(cfg.Engine.BaseURL)
	return status.NewChannel(api, push,
		status.WithPollInterval(cfg.Status.PollInterval()),
		status.WithTimeout(cfg.Status.Timeout()),
	)
}

func newController(api scrapeapi.Client, store *history.Store, sink func(model.JobStatus)) *controller.Controller {
	return controller.New(api, newStatusChannel(api), store, sink,
		controller.WithZeroProgressOnError(cfg.Status.ZeroOnError),
	)
}

// printStatusLine is the shared sink for live tracking commands.
func printStatusLine(st model.JobStatus) {
	msg := st.Message
	if st.Status == model.StatusError && st.Error != "" {
		msg = st.Error
	}
	fmt.Printf("[%3d%%] %-10s %s\n", st.Progress, st.Status, msg)
}
