package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

const isoDateLayout = "2006-01-02"

// JSONLD reads dateModified from embedded JSON-LD blocks. Blocks are parsed as
// JSON5 so trailing commas and comments left by CMS templates still decode.
type JSONLD struct{}

func (JSONLD) Name() string { return "json-ld" }

// Lookup returns the first dateModified found, trimmed to its date part. A
// non-nil error reports malformed blocks even when another block matched.
func (JSONLD) Lookup(sel *goquery.Selection) (string, error) {
	var errs []error
	found := ""
	sel.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, script *goquery.Selection) bool {
		raw := strings.TrimSpace(script.Text())
		if raw == "" {
			return true
		}
		var doc any
		if err := json5.Unmarshal([]byte(raw), &doc); err != nil {
			errs = append(errs, ErrParse{Block: i, Err: err})
			return true
		}
		if date, ok := findDateModified(doc); ok {
			found = date
			return false
		}
		return true
	})
	return found, errors.Join(errs...)
}

func (j JSONLD) Attempt(sel *goquery.Selection) (string, bool) {
	date, _ := j.Lookup(sel)
	return date, date != ""
}

// findDateModified walks objects and arrays (including @graph) depth first.
func findDateModified(v any) (string, bool) {
	switch node := v.(type) {
	case map[string]any:
		if raw, ok := node["dateModified"].(string); ok {
			if date, ok := isoDate(raw); ok {
				return date, true
			}
		}
		if graph, ok := node["@graph"]; ok {
			if date, ok := findDateModified(graph); ok {
				return date, true
			}
		}
		for key, child := range node {
			if key == "@graph" {
				continue
			}
			if date, ok := findDateModified(child); ok {
				return date, true
			}
		}
	case []any:
		for _, child := range node {
			if date, ok := findDateModified(child); ok {
				return date, true
			}
		}
	}
	return "", false
}

// MetaModified reads a modified-time meta tag.
type MetaModified struct{}

var metaModifiedSelectors = []string{
	`meta[property="article:modified_time"]`,
	`meta[property="og:updated_time"]`,
	`meta[itemprop="dateModified"]`,
	`meta[name="last-modified"]`,
}

func (MetaModified) Name() string { return "meta" }

func (MetaModified) Attempt(sel *goquery.Selection) (string, bool) {
	for _, selector := range metaModifiedSelectors {
		content, ok := sel.Find(selector).First().Attr("content")
		if !ok {
			continue
		}
		if date, ok := isoDate(content); ok {
			return date, true
		}
	}
	return "", false
}

// isoDate keeps the first ten characters of an ISO-8601 timestamp.
func isoDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(isoDateLayout) {
		return "", false
	}
	date := raw[:len(isoDateLayout)]
	if _, err := time.Parse(isoDateLayout, date); err != nil {
		return "", false
	}
	return date, true
}
