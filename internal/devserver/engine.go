package devserver

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kbscrape/scrape-cli/internal/model"
)

// articlesPerSource caps how many articles the simulation "scrapes" from a
// website source, regardless of the requested max.
const articlesPerSource = 5

// runJob simulates the scraping engine for one job: it walks the sources,
// broadcasts granular progress the way the real engine does, and stores a
// fake result set on completion.
func (s *Server) runJob(ctx context.Context, id string, cfg model.JobConfig) {
	emit := func(st model.JobStatus) {
		st.JobID = id
		s.setStatus(id, st)
		s.hub.broadcastUpdate(st)
	}

	emit(model.JobStatus{
		Status:   model.StatusRunning,
		Message:  "Starting scraping job...",
		Progress: 0,
	})

	total := len(cfg.Sources)
	emit(model.JobStatus{
		Status:   model.StatusRunning,
		Message:  fmt.Sprintf("Starting to process %d sources...", total),
		Progress: 0,
	})

	var items []model.ContentItem
	for i, src := range cfg.Sources {
		base := i * 100 / total

		emit(model.JobStatus{
			Status:   model.StatusRunning,
			Message:  fmt.Sprintf("Processing: %s", sourceLabel(src)),
			Progress: base,
		})

		if src.IsPDF() {
			items = append(items, pdfItems(cfg.CustomerName, src)...)
		} else {
			scraped, err := s.scrapeWebsite(ctx, emit, src, i, total)
			if err != nil {
				// A failed source does not fail the job; the engine moves on.
				zap.L().Debug("stub engine source failed", zap.String("url", src.URL), zap.Error(err))
			}
			items = append(items, scraped...)
		}

		emit(model.JobStatus{
			Status:   model.StatusRunning,
			Message:  fmt.Sprintf("Completed: %s (%d/%d)", sourceLabel(src), i+1, total),
			Progress: (i + 1) * 100 / total,
		})
	}

	s.setResult(id, &model.JobResult{
		JobID:        id,
		CustomerName: cfg.CustomerName,
		ContentItems: items,
	})

	emit(model.JobStatus{
		Status:     model.StatusCompleted,
		Message:    fmt.Sprintf("Scraping completed! Found %d items.", len(items)),
		Progress:   100,
		TotalItems: len(items),
	})
}

// scrapeWebsite emits per-article progress paced by the source delay.
func (s *Server) scrapeWebsite(ctx context.Context, emit func(model.JobStatus), src model.Source, idx, total int) ([]model.ContentItem, error) {
	count := articlesPerSource
	if src.MaxArticles > 0 && src.MaxArticles < count {
		count = src.MaxArticles
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if src.DelaySeconds > 0 {
		limiter = rate.NewLimiter(rate.Limit(1/src.DelaySeconds), 1)
	}

	var items []model.ContentItem
	for n := 1; n <= count; n++ {
		if err := limiter.Wait(ctx); err != nil {
			return items, err
		}

		base := idx * 100 / total
		within := n * (100 / total) / count
		progress := base + within
		if progress > 100 {
			progress = 100
		}
		emit(model.JobStatus{
			Status:   model.StatusRunning,
			Message:  fmt.Sprintf("Scraping article %d/%d from %s", n, count, src.URL),
			Progress: progress,
		})

		items = append(items, model.ContentItem{
			Title:       fmt.Sprintf("Article %d", n),
			ContentType: "article",
			SourceURL:   fmt.Sprintf("%s/article-%d", strings.TrimRight(src.URL, "/"), n),
			Content: fmt.Sprintf("# Article %d\n\nSample content scraped from %s.\n\n- point one\n- point two\n\nSee https://example.com for more.",
				n, src.URL),
		})
	}
	return items, nil
}

func pdfItems(customer string, src model.Source) []model.ContentItem {
	title := src.Title
	if title == "" {
		title = src.Description
	}
	if title == "" {
		title = path.Base(src.FilePath)
	}
	author := src.Author
	if author == "" {
		author = customer
	}
	return []model.ContentItem{{
		Title:       title,
		ContentType: "pdf",
		Content:     fmt.Sprintf("## %s\n\nExtracted text from %s.\n\nAuthor: %s", title, src.FilePath, author),
	}}
}

func sourceLabel(src model.Source) string {
	if src.IsPDF() {
		return src.FilePath
	}
	return src.URL
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
