package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-bursaries/models"
)

// DetailOptions controls the detail extractor.
type DetailOptions struct {
	ContentSelector string
	DateKeywords    []string
	// AuthoritativeMetadata returns as soon as JSON-LD yields dateModified,
	// skipping the closing-date heuristics.
	AuthoritativeMetadata bool
}

// DetailExtractor runs the metadata lookups and the closing-date cascade
// against one detail page.
type DetailExtractor struct {
	opts       DetailOptions
	strategies []Strategy
	jsonLD     JSONLD
	meta       MetaModified
}

// NewDetailExtractor builds an extractor. With no strategies given it uses
// DefaultStrategies for the configured keywords.
func NewDetailExtractor(opts DetailOptions, strategies ...Strategy) *DetailExtractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(opts.DateKeywords)
	}
	return &DetailExtractor{opts: opts, strategies: strategies}
}

// Strategies returns the closing-date cascade in the order it is tried.
func (e *DetailExtractor) Strategies() []Strategy {
	out := make([]Strategy, len(e.strategies))
	copy(out, e.strategies)
	return out
}

// Extract parses markup and extracts details. It never panics; failures come
// back as sentinel fields.
func (e *DetailExtractor) Extract(markup []byte) models.DetailResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		slog.Debug("parse detail html", slog.Any("error", err))
		return models.Failed(models.KindError)
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument extracts details from an already parsed page.
func (e *DetailExtractor) ExtractDocument(doc *goquery.Document) (result models.DetailResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("detail extraction panicked", slog.String("panic", fmt.Sprint(r)))
			result = models.Failed(models.KindError)
		}
	}()

	result = models.Unmatched()
	var trace []string

	date, err := e.jsonLD.Lookup(doc.Selection)
	if err != nil {
		slog.Debug("malformed structured data", slog.Any("error", err))
	}
	if date != "" {
		result.LastUpdated = models.Value(date)
		trace = append(trace, e.jsonLD.Name())
		if e.opts.AuthoritativeMetadata {
			result.Strategy = strings.Join(trace, ",")
			return result
		}
	} else if date, ok := e.meta.Attempt(doc.Selection); ok {
		result.LastUpdated = models.Value(date)
		trace = append(trace, e.meta.Name())
	}

	region := doc.Find(e.opts.ContentSelector).First()
	if region.Length() == 0 {
		slog.Debug("detail content region missing", slog.String("selector", e.opts.ContentSelector))
		result.ClosingDate = models.Sentinel(models.KindNotFound)
		result.Strategy = strings.Join(trace, ",")
		return result
	}

	for _, s := range e.strategies {
		if candidate, ok := s.Attempt(region); ok {
			result.ClosingDate = models.Value(candidate)
			trace = append(trace, s.Name())
			break
		}
	}
	result.Strategy = strings.Join(trace, ",")
	return result
}
