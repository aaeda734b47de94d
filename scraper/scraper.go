package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-scrape-bursaries/config"
	"github.com/aluiziolira/go-scrape-bursaries/models"
	"github.com/aluiziolira/go-scrape-bursaries/parser"
	"github.com/aluiziolira/go-scrape-bursaries/pipeline"
)

// Scraper runs one pass over the listing page and its detail pages.
type Scraper struct {
	cfg       *config.Config
	listing   *Fetcher
	detail    *Fetcher
	extractor *parser.DetailExtractor
	pacer     *pacer
	Metrics   *Metrics

	now func() time.Time

	detailFetches int64
	errorCount    int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int
	sentinels    map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	metrics := NewMetrics()
	return &Scraper{
		cfg:     cfg,
		listing: NewFetcher(cfg, cfg.ListingTimeout, metrics, "listing"),
		detail:  NewFetcher(cfg, cfg.DetailTimeout, metrics, "detail"),
		extractor: parser.NewDetailExtractor(parser.DetailOptions{
			ContentSelector:       cfg.ContentSelector,
			DateKeywords:          cfg.DateKeywords,
			AuthoritativeMetadata: cfg.AuthoritativeMetadata,
		}),
		pacer:        newPacer(cfg.Delay),
		Metrics:      metrics,
		now:          time.Now,
		errorsByType: make(map[string]int),
		sentinels:    make(map[string]int),
	}, nil
}

// WithTransport routes both listing and detail requests through rt.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.listing.WithTransport(rt)
	s.detail.WithTransport(rt)
}

// Inspect fetches and extracts a single detail page.
func (s *Scraper) Inspect(ctx context.Context, rawURL string) (models.DetailResult, error) {
	body, err := s.detail.Fetch(ctx, rawURL)
	if err != nil {
		return models.Failed(sentinelFor(err)), err
	}
	return s.extractor.Extract(body), nil
}

// Run fetches the listing, extracts every qualifying detail page in listing
// order, and hands the records to p. Per-item failures become sentinel
// fields; a listing failure ends the run with no records and sets ListingErr.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.ScraperResult{StartTime: s.now()}
	defer func() {
		result.EndTime = s.now()
		result.DetailFetches = int(atomic.LoadInt64(&s.detailFetches))
		result.ErrorCount = int(atomic.LoadInt64(&s.errorCount))
		result.FailedURLs = s.snapshotFailedURLs()
		result.ErrorsByType = s.snapshotErrors()
		result.SentinelCount = s.snapshotSentinels()
	}()

	slog.Info("connecting to listing", slog.String("url", s.cfg.ListingURL))
	body, err := s.listing.Fetch(ctx, s.cfg.ListingURL)
	if err != nil {
		s.recordError(s.cfg.ListingURL, err)
		result.ListingErr = err
		return result, nil
	}

	listing, err := parser.ParseListing(bytes.NewReader(body), s.cfg.ListingURL, parser.ListingOptions{
		ContentSelector: s.cfg.ContentSelector,
		LinkKeywords:    s.cfg.LinkKeywords,
	})
	if err != nil {
		s.recordError(s.cfg.ListingURL, err)
		result.ListingErr = err
		return result, nil
	}
	result.ListingItems = listing.ItemCount
	result.EntryCount = len(listing.Entries)
	slog.Info("listing scanned",
		slog.Int("items", listing.ItemCount),
		slog.Int("qualifying", len(listing.Entries)),
		slog.Int("duplicates", listing.Duplicates),
	)

	records := make([]*models.BursaryRecord, len(listing.Entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, entry := range listing.Entries {
		g.Go(func() error {
			records[i] = s.scrapeDetail(gctx, i, len(listing.Entries), entry)
			return nil
		})
	}
	_ = g.Wait()

	for _, record := range records {
		if record == nil {
			continue
		}
		result.Records = append(result.Records, record)
		if p == nil {
			continue
		}
		if err := p.Process(record); err != nil {
			return result, fmt.Errorf("pipeline process: %w", err)
		}
	}

	if ctx.Err() != nil {
		slog.Warn("run interrupted", slog.Int("records", len(result.Records)), slog.Int("entries", len(listing.Entries)))
	}
	return result, nil
}

func (s *Scraper) scrapeDetail(ctx context.Context, index, total int, entry models.ListingEntry) *models.BursaryRecord {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil
	}

	slog.Info("fetching details",
		slog.String("progress", fmt.Sprintf("%d/%d", index+1, total)),
		slog.String("title", entry.Title),
	)
	atomic.AddInt64(&s.detailFetches, 1)

	var detail models.DetailResult
	body, err := s.detail.Fetch(ctx, entry.URL)
	if err != nil {
		s.recordError(entry.URL, err)
		detail = models.Failed(sentinelFor(err))
	} else {
		detail = s.extractor.Extract(body)
	}

	record := models.NewRecord(entry, detail, s.now())
	s.countSentinels(record)
	s.Metrics.ObserveRecord(record)
	slog.Debug("details extracted",
		slog.String("url", entry.URL),
		slog.String("closing_date", record.ClosingDate.String()),
		slog.String("last_updated", record.LastUpdated.String()),
		slog.String("strategy", record.Strategy),
	)
	return record
}

func (s *Scraper) recordError(url string, err error) {
	atomic.AddInt64(&s.errorCount, 1)
	category := errorTypeLabel(err)

	s.mu.Lock()
	s.errorsByType[category]++
	s.failedURLs = append(s.failedURLs, url)
	s.mu.Unlock()

	slog.Error("request error",
		slog.String("url", url),
		slog.String("category", category),
		slog.Any("error", err),
	)
}

func (s *Scraper) countSentinels(r *models.BursaryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range []models.Field{r.ClosingDate, r.LastUpdated} {
		if f.IsSentinel() {
			s.sentinels[f.String()]++
		}
	}
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func (s *Scraper) snapshotSentinels() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.sentinels))
	for k, v := range s.sentinels {
		out[k] = v
	}
	return out
}
