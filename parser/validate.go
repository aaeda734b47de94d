package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-bursaries/models"
)

// ValidateRecord ensures a record carries a name and an absolute link.
func ValidateRecord(r *models.BursaryRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title for %s", r.URL)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("record %q has invalid link: %w", r.Title, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("record %q link is not absolute: %s", r.Title, r.URL)
	}
	if r.ScrapedAt.IsZero() {
		return fmt.Errorf("record %q missing scrape time", r.Title)
	}
	return nil
}
