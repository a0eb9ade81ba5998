package worker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/metrics"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/queue"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const scrapeTimeout = 30 * time.Second

// Scraper defines the interface for downloading web pages.
// This allows us to mock the "Download" step in tests.
type Scraper interface {
	Scrape(url string, timeout time.Duration) (*readability.Article, error)
}

// DefaultScraper fetches pages over the network.
type DefaultScraper struct{}

func (s *DefaultScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	return &art, err
}

// ArticleAdder is the part of intake the worker writes through.
type ArticleAdder interface {
	AddArticle(ctx context.Context, req intake.ArticleRequest) (*model.Item, error)
}

type Worker struct {
	queue   queue.Queue
	intake  ArticleAdder
	logger  *zap.Logger
	metrics *metrics.Metrics
	scraper Scraper
}

// NewWorker initializes the worker with the DefaultScraper
func NewWorker(q queue.Queue, in ArticleAdder, logger *zap.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		queue:   q,
		intake:  in,
		logger:  logger,
		metrics: m,
		scraper: &DefaultScraper{},
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Import worker started. Waiting for jobs...")

	for {
		// Blocking call to Redis
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Import worker shutting down")
				return
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job queue.ImportJob) {
	logger := w.logger.With(zap.String("url", job.URL))
	logger.Info("Processing started")

	item, err := w.Import(ctx, job)
	if err != nil {
		logger.Error("Import failed", zap.Error(err))
		return
	}
	logger.Info("Import complete",
		zap.String("id", item.ID.String()),
		zap.String("title", item.Article.Title))
}

// Import scrapes job.URL and stores the readable part as an HTML article.
// The CLI calls it directly for synchronous imports.
func (w *Worker) Import(ctx context.Context, job queue.ImportJob) (*model.Item, error) {
	u, err := url.Parse(job.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		w.metrics.Imported("invalid")
		return nil, fmt.Errorf("%w: not a web address: %q", intake.ErrInvalidFormat, job.URL)
	}

	parsed, err := w.scraper.Scrape(job.URL, scrapeTimeout)
	if err != nil {
		w.metrics.Imported("scrape_failed")
		return nil, fmt.Errorf("%w: scrape %s: %w", intake.ErrIO, job.URL, err)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = u.Host
	}
	item, err := w.intake.AddArticle(ctx, intake.ArticleRequest{
		Slug:     job.Slug,
		Category: job.Category,
		Title:    title,
		Body:     parsed.Content,
		Format:   model.FormatHTML,
		Source:   job.URL,
		Excerpt:  parsed.Excerpt,
	})
	if err != nil {
		outcome := "store_failed"
		if errors.Is(err, intake.ErrInvalidFormat) {
			outcome = "invalid"
		}
		w.metrics.Imported(outcome)
		return nil, err
	}
	w.metrics.Imported("ok")
	return item, nil
}
