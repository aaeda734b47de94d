// Package models defines data structures for the scraper.
package models

import "time"

// ListingEntry is one qualifying link discovered on the listing page.
type ListingEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DetailResult is what the detail extractor recovered from one bursary page.
type DetailResult struct {
	ClosingDate Field  `json:"closing_date"`
	LastUpdated Field  `json:"last_updated"`
	Strategy    string `json:"strategy,omitempty"`
}

// Unmatched is the fail-closed result for a page where no heuristic matched.
func Unmatched() DetailResult {
	return DetailResult{
		ClosingDate: Sentinel(KindOpen),
		LastUpdated: Sentinel(KindUnknown),
	}
}

// Failed stamps both fields with the same failure sentinel.
func Failed(kind Kind) DetailResult {
	return DetailResult{
		ClosingDate: Sentinel(kind),
		LastUpdated: Sentinel(kind),
	}
}

// BursaryRecord joins a listing entry with its details; it is the unit written to output.
type BursaryRecord struct {
	Title       string    `json:"bursary_name"`
	URL         string    `json:"link"`
	ClosingDate Field     `json:"closing_date"`
	LastUpdated Field     `json:"last_updated"`
	Strategy    string    `json:"strategy,omitempty"`
	ScrapedAt   time.Time `json:"date_scraped"`
}

// NewRecord builds the output record for entry.
func NewRecord(entry ListingEntry, detail DetailResult, scrapedAt time.Time) *BursaryRecord {
	return &BursaryRecord{
		Title:       entry.Title,
		URL:         entry.URL,
		ClosingDate: detail.ClosingDate,
		LastUpdated: detail.LastUpdated,
		Strategy:    detail.Strategy,
		ScrapedAt:   scrapedAt,
	}
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	Records       []*BursaryRecord
	StartTime     time.Time
	EndTime       time.Time
	ListingItems  int
	EntryCount    int
	DetailFetches int
	ErrorCount    int
	FailedURLs    []string
	ErrorsByType  map[string]int
	SentinelCount map[string]int
	ListingErr    error
}
