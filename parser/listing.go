package parser

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-bursaries/models"
)

// ListingOptions controls which links on the listing page qualify.
type ListingOptions struct {
	ContentSelector string
	LinkKeywords    []string
}

// Listing is the outcome of scanning the listing page.
type Listing struct {
	Entries    []models.ListingEntry
	ItemCount  int
	Duplicates int
}

// ParseListing reads listing markup and extracts qualifying entries.
func ParseListing(r io.Reader, pageURL string, opts ListingOptions) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return &Listing{}, fmt.Errorf("parse listing html: %w", err)
	}
	var base *url.URL
	if pageURL != "" {
		base, err = url.Parse(pageURL)
		if err != nil {
			return &Listing{}, fmt.Errorf("parse listing url: %w", err)
		}
	}
	return ExtractListings(doc, base, opts)
}

// ExtractListings walks the list items of the content region and keeps the
// first link of each item whose raw href contains a link keyword. URLs are
// resolved against base and deduplicated; the first occurrence wins.
// A missing content region yields an empty listing and ErrStructural.
func ExtractListings(doc *goquery.Document, base *url.URL, opts ListingOptions) (*Listing, error) {
	out := &Listing{}
	region := doc.Find(opts.ContentSelector).First()
	if region.Length() == 0 {
		page := ""
		if base != nil {
			page = base.String()
		}
		return out, ErrStructural{Selector: opts.ContentSelector, Page: page}
	}

	items := region.Find("li")
	out.ItemCount = items.Length()
	seen := make(map[string]struct{}, out.ItemCount)

	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a").First()
		if link.Length() == 0 {
			return
		}
		href, ok := link.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || !hasLinkKeyword(href, opts.LinkKeywords) {
			return
		}

		abs := resolve(base, href)
		if _, dup := seen[abs]; dup {
			out.Duplicates++
			return
		}
		seen[abs] = struct{}{}

		title := collapseSpace(link.Text())
		if title == "" {
			title = collapseSpace(link.AttrOr("title", ""))
		}
		if title == "" {
			title = abs
		}
		out.Entries = append(out.Entries, models.ListingEntry{Title: title, URL: abs})
	})

	return out, nil
}

// hasLinkKeyword is a case-sensitive substring match on the raw href.
func hasLinkKeyword(href string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(href, kw) {
			return true
		}
	}
	return false
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
