package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-bursaries/config"
	"github.com/aluiziolira/go-scrape-bursaries/notify"
	"github.com/aluiziolira/go-scrape-bursaries/pipeline"
	"github.com/aluiziolira/go-scrape-bursaries/scraper"
)

func (a *app) newScraper() (*scraper.Scraper, error) {
	s, err := scraper.NewScraper(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising scraper: %w", err)
	}
	if a.transport != nil {
		s.WithTransport(a.transport)
	}
	return s, nil
}

// runScrape performs one full pass. Listing failures and empty runs are
// reported but are not errors; only output failures are.
func (a *app) runScrape(ctx context.Context, out io.Writer) error {
	cfg := a.cfg
	s, err := a.newScraper()
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.Canceled) {
			slog.Info("shutdown signal received, finishing in-flight fetches")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	slog.Info("starting scrape",
		slog.String("url", cfg.ListingURL),
		slog.Int("workers", cfg.Parallelism),
		slog.String("format", cfg.OutputFormat),
	)

	now := time.Now()
	p, err := pipeline.NewPipeline(func() (pipeline.OutputWriter, error) {
		return pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	}, cfg, now)
	if err != nil {
		return err
	}

	result, err := s.Run(ctx, p)
	if err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if result.ListingErr != nil {
		slog.Error("could not read the listing page",
			slog.String("url", cfg.ListingURL),
			slog.Any("error", result.ListingErr),
		)
	}

	written := p.Written()
	if written == 0 {
		fmt.Fprintln(out, "No bursaries were found.")
	} else {
		slog.Info("report saved", slog.Int("records", written), slog.String("file", cfg.OutputFile))
		a.sendReport(ctx, cfg, now)
	}

	printSummary(out, result, p, cfg.OutputFile)
	return nil
}

// sendReport mails the saved report. Every failure here is logged and
// swallowed; the file on disk is the primary output.
func (a *app) sendReport(ctx context.Context, cfg *config.Config, now time.Time) {
	if !cfg.SendEmail {
		slog.Info("skipping email: disabled")
		return
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		slog.Warn("skipping email", slog.Any("error", err))
		return
	}

	err = notify.NewMailer(cfg, creds).Send(ctx, cfg.OutputFile, now)
	switch {
	case errors.Is(err, notify.ErrCredentialsMissing):
		slog.Info("skipping email: EMAIL_USER/EMAIL_PASS not set")
	case err != nil:
		slog.Error("sending email", slog.Any("error", err))
	}
}
