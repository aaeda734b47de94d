package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	ListingURL            string        `yaml:"listing_url"`
	UserAgent             string        `yaml:"user_agent"`
	ListingTimeout        time.Duration `yaml:"listing_timeout"`
	DetailTimeout         time.Duration `yaml:"detail_timeout"`
	Delay                 time.Duration `yaml:"delay"`
	Parallelism           int           `yaml:"parallelism"`
	ContentSelector       string        `yaml:"content_selector"`
	LinkKeywords          []string      `yaml:"link_keywords"`
	DateKeywords          []string      `yaml:"date_keywords"`
	FreshnessWindow       time.Duration `yaml:"freshness_window"`
	FreshOnly             bool          `yaml:"fresh_only"`
	AuthoritativeMetadata bool          `yaml:"authoritative_metadata"`
	OutputFile            string        `yaml:"output_file"`
	OutputFormat          string        `yaml:"output_format"` // xlsx, csv, json, or dual
	BatchSize             int           `yaml:"batch_size"`
	DedupeMaxSize         int           `yaml:"dedupe_max_size"`
	MetricsAddr           string        `yaml:"metrics_addr"`
	RespectRobotsTxt      bool          `yaml:"respect_robots_txt"`
	Verbose               bool          `yaml:"verbose"`
	SendEmail             bool          `yaml:"send_email"`
	SMTPHost              string        `yaml:"smtp_host"`
	SMTPPort              int           `yaml:"smtp_port"`
}

// DefaultConfig returns the settings used against the live listing.
func DefaultConfig() *Config {
	return &Config{
		ListingURL:            "https://www.zabursaries.co.za/computer-science-it-bursaries-south-africa/",
		UserAgent:             "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		ListingTimeout:        15 * time.Second,
		DetailTimeout:         5 * time.Second,
		Delay:                 500 * time.Millisecond,
		Parallelism:           1,
		ContentSelector:       "div.entry-content",
		LinkKeywords:          []string{"bursary", "scholarship"},
		DateKeywords:          []string{"Closing Date", "Deadline", "Applications close", "Close date"},
		FreshnessWindow:       180 * 24 * time.Hour,
		FreshOnly:             false,
		AuthoritativeMetadata: true,
		OutputFile:            "output/bursaries.xlsx",
		OutputFormat:          "xlsx",
		BatchSize:             64,
		DedupeMaxSize:         100000,
		MetricsAddr:           "",
		RespectRobotsTxt:      false,
		Verbose:               false,
		SendEmail:             true,
		SMTPHost:              "smtp.gmail.com",
		SMTPPort:              587,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ListingURL == "" {
		return fmt.Errorf("listing URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.ListingURL)
	if err != nil {
		return fmt.Errorf("invalid listing URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("listing URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("listing URL must use http or https")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ListingTimeout <= 0 {
		return fmt.Errorf("listing timeout must be positive")
	}
	if c.DetailTimeout <= 0 {
		return fmt.Errorf("detail timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.ContentSelector == "" {
		return fmt.Errorf("content selector cannot be empty")
	}
	if len(c.LinkKeywords) == 0 {
		return fmt.Errorf("link keywords cannot be empty")
	}
	if len(c.DateKeywords) == 0 {
		return fmt.Errorf("date keywords cannot be empty")
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "xlsx", "csv", "json", "dual":
	default:
		return fmt.Errorf("output format must be xlsx, csv, json, or dual")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.SendEmail {
		if c.SMTPHost == "" {
			return fmt.Errorf("smtp host cannot be empty when email is enabled")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("smtp port %d out of range", c.SMTPPort)
		}
	}

	return nil
}

// Cutoff returns the oldest last-updated date still considered fresh at now.
func (c *Config) Cutoff(now time.Time) time.Time {
	return now.Add(-c.FreshnessWindow)
}
