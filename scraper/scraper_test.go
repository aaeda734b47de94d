package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aluiziolira/go-scrape-bursaries/config"
	"github.com/aluiziolira/go-scrape-bursaries/models"
	"github.com/aluiziolira/go-scrape-bursaries/parser"
	"github.com/aluiziolira/go-scrape-bursaries/pipeline"
)

const listingURL = "http://example.test/bursaries/"

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: errors.New("Internal Server Error"), statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "structural", err: parser.ErrStructural{Selector: "div.entry-content"}, statusCode: 0, expected: "structural"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestSentinelFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.Kind
	}{
		{name: "timeout", err: ErrTimeout{Err: context.DeadlineExceeded}, want: models.KindTimeout},
		{name: "status", err: ErrHTTPStatus{StatusCode: 404, Err: errors.New("Not Found")}, want: models.KindCheckLink},
		{name: "connection", err: ErrConnection{Err: errors.New("reset")}, want: models.KindError},
		{name: "other", err: errors.New("boom"), want: models.KindError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sentinelFor(tt.err); got != tt.want {
				t.Fatalf("sentinelFor(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ListingURL = listingURL
	cfg.Delay = 0
	cfg.SendEmail = false
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, transport *httpmock.MockTransport) *Scraper {
	t.Helper()
	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.WithTransport(transport)
	s.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func htmlResponder(body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		resp.Request = req
		return resp, nil
	}
}

func listingPage(items ...string) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><div class="entry-content"><ul>`)
	for _, item := range items {
		builder.WriteString("<li>" + item + "</li>")
	}
	builder.WriteString(`</ul></div></body></html>`)
	return builder.String()
}

func detailPage(head, body string) string {
	return `<html><head>` + head + `</head><body><div class="entry-content">` + body + `</div></body></html>`
}

func TestScraperRunEndToEnd(t *testing.T) {
	cfg := testConfig()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", listingURL, htmlResponder(listingPage(
		`<a href="/engineering-bursary/">Engineering Bursary</a>`,
		`<a href="/about-us/">About</a>`,
		`<a href="/engineering-bursary/">Engineering Bursary (again)</a>`,
	)))
	transport.RegisterResponder("GET", "http://example.test/engineering-bursary/", htmlResponder(detailPage(
		`<meta property="article:modified_time" content="2024-05-02T10:00:00+00:00">`,
		`<p>Study engineering.</p><p>Closing Date: 31 August 2024</p>`,
	)))

	s := newTestScraper(t, cfg, transport)

	var written []*models.BursaryRecord
	p, err := pipeline.NewPipeline(func() (pipeline.OutputWriter, error) {
		return &sliceWriter{out: &written}, nil
	}, cfg, s.now())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	result, err := s.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := transport.GetTotalCallCount(); got != 2 {
		t.Fatalf("http calls = %d, want 2 (listing + one detail): %v", got, transport.GetCallCountInfo())
	}
	if result.ListingErr != nil {
		t.Fatalf("unexpected listing error: %v", result.ListingErr)
	}
	if result.ListingItems != 3 || result.EntryCount != 1 || result.DetailFetches != 1 {
		t.Fatalf("items=%d entries=%d fetches=%d, want 3/1/1", result.ListingItems, result.EntryCount, result.DetailFetches)
	}

	want := []*models.BursaryRecord{{
		Title:       "Engineering Bursary",
		URL:         "http://example.test/engineering-bursary/",
		ClosingDate: models.Value("31 August 2024"),
		LastUpdated: models.Value("2024-05-02"),
		Strategy:    "meta,line-scan",
		ScrapedAt:   s.now(),
	}}
	if diff := cmp.Diff(want, written); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	if got := testutil.ToFloat64(s.Metrics.RequestsTotal.WithLabelValues("detail")); got != 1 {
		t.Fatalf("detail requests metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.Metrics.StrategyHitTotal.WithLabelValues("meta,line-scan")); got != 1 {
		t.Fatalf("strategy metric = %v, want 1", got)
	}
}

func TestScraperDetailFailuresBecomeSentinels(t *testing.T) {
	cfg := testConfig()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", listingURL, htmlResponder(listingPage(
		`<a href="/slow-bursary/">Slow Bursary</a>`,
		`<a href="/gone-bursary/">Gone Bursary</a>`,
		`<a href="/reset-scholarship/">Reset Scholarship</a>`,
		`<a href="/fine-bursary/">Fine Bursary</a>`,
	)))
	transport.RegisterResponder("GET", "http://example.test/slow-bursary/",
		httpmock.NewErrorResponder(context.DeadlineExceeded))
	transport.RegisterResponder("GET", "http://example.test/gone-bursary/",
		httpmock.NewStringResponder(http.StatusNotFound, "not here"))
	transport.RegisterResponder("GET", "http://example.test/reset-scholarship/",
		httpmock.NewErrorResponder(errors.New("connection reset by peer")))
	transport.RegisterResponder("GET", "http://example.test/fine-bursary/", htmlResponder(detailPage(
		"", `<h3>Deadline</h3><p>30 September 2024</p>`,
	)))

	s := newTestScraper(t, cfg, transport)
	result, err := s.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got := make(map[string][2]string, len(result.Records))
	for _, r := range result.Records {
		got[r.Title] = [2]string{r.ClosingDate.String(), r.LastUpdated.String()}
	}
	want := map[string][2]string{
		"Slow Bursary":      {"Timeout - Check Manually", "Timeout - Check Manually"},
		"Gone Bursary":      {"Check Link", "Check Link"},
		"Reset Scholarship": {"Error", "Error"},
		"Fine Bursary":      {"30 September 2024", "Unknown"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	if result.Records[0].Title != "Slow Bursary" || result.Records[3].Title != "Fine Bursary" {
		t.Fatalf("records should keep listing order")
	}
	if result.ErrorCount != 3 {
		t.Fatalf("error count = %d, want 3", result.ErrorCount)
	}
	wantErrors := map[string]int{"timeout": 1, "not_found": 1, "connection": 1}
	if diff := cmp.Diff(wantErrors, result.ErrorsByType); diff != "" {
		t.Fatalf("errors by type mismatch (-want +got):\n%s", diff)
	}
	if result.SentinelCount["Timeout - Check Manually"] != 2 {
		t.Fatalf("sentinel counts = %v", result.SentinelCount)
	}
	if got := testutil.ToFloat64(s.Metrics.ErrorsTotal.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("timeout metric = %v, want 1", got)
	}
}

func TestScraperParallelKeepsListingOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 4

	var items []string
	transport := httpmock.NewMockTransport()
	for i := 1; i <= 8; i++ {
		path := fmt.Sprintf("/bursary-%d/", i)
		items = append(items, fmt.Sprintf(`<a href="%s">Bursary %d</a>`, path, i))
		transport.RegisterResponder("GET", "http://example.test"+path, htmlResponder(detailPage(
			"", fmt.Sprintf(`<p>Closing Date: %d March 2025</p>`, i),
		)))
	}
	transport.RegisterResponder("GET", listingURL, htmlResponder(listingPage(items...)))

	s := newTestScraper(t, cfg, transport)
	result, err := s.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Records) != 8 {
		t.Fatalf("records = %d, want 8", len(result.Records))
	}
	for i, r := range result.Records {
		if want := fmt.Sprintf("Bursary %d", i+1); r.Title != want {
			t.Fatalf("record %d = %q, want %q", i, r.Title, want)
		}
		if want := fmt.Sprintf("%d March 2025", i+1); r.ClosingDate.String() != want {
			t.Fatalf("record %d closing = %q, want %q", i, r.ClosingDate, want)
		}
	}
}

func TestScraperListingFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		category  string
	}{
		{name: "status", responder: httpmock.NewStringResponder(http.StatusNotFound, ""), category: "not_found"},
		{name: "timeout", responder: httpmock.NewErrorResponder(context.DeadlineExceeded), category: "timeout"},
		{name: "missing region", responder: htmlResponder(`<html><body><ul><li><a href="/x-bursary/">X</a></li></ul></body></html>`), category: "structural"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", listingURL, tt.responder)

			s := newTestScraper(t, cfg, transport)
			opened := 0
			p, err := pipeline.NewPipeline(func() (pipeline.OutputWriter, error) {
				opened++
				return &sliceWriter{out: new([]*models.BursaryRecord)}, nil
			}, cfg, s.now())
			if err != nil {
				t.Fatalf("new pipeline: %v", err)
			}

			result, err := s.Run(context.Background(), p)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Fatalf("close pipeline: %v", err)
			}

			if result.ListingErr == nil {
				t.Fatalf("expected a listing error")
			}
			if len(result.Records) != 0 || opened != 0 {
				t.Fatalf("records=%d opened=%d, want none", len(result.Records), opened)
			}
			if result.ErrorsByType[tt.category] != 1 {
				t.Fatalf("errors by type = %v, want %s", result.ErrorsByType, tt.category)
			}
			if got := transport.GetTotalCallCount(); got != 1 {
				t.Fatalf("http calls = %d, want only the listing", got)
			}
		})
	}
}

func TestScraperInspect(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/one-bursary/", htmlResponder(detailPage(
		`<script type="application/ld+json">{"@type": "WebPage", "dateModified": "2024-04-09T08:00:00Z",}</script>`,
		`<p>Closing Date: 1 May 2024</p>`,
	)))
	transport.RegisterResponder("GET", "http://example.test/missing-bursary/",
		httpmock.NewStringResponder(http.StatusForbidden, ""))

	s := newTestScraper(t, cfg, transport)

	detail, err := s.Inspect(context.Background(), "http://example.test/one-bursary/")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if detail.LastUpdated.String() != "2024-04-09" || detail.Strategy != "json-ld" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.ClosingDate.Kind() != models.KindOpen {
		t.Fatalf("authoritative metadata should leave the closing date open, got %q", detail.ClosingDate)
	}

	detail, err = s.Inspect(context.Background(), "http://example.test/missing-bursary/")
	var status ErrHTTPStatus
	if !errors.As(err, &status) || status.StatusCode != http.StatusForbidden {
		t.Fatalf("expected ErrHTTPStatus 403, got %v", err)
	}
	if detail.ClosingDate.String() != "Check Link" {
		t.Fatalf("closing = %q, want Check Link", detail.ClosingDate)
	}
}

func TestScraperSendsBrowserHeaders(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	var gotUA, gotAccept string
	transport.RegisterResponder("GET", listingURL, func(req *http.Request) (*http.Response, error) {
		gotUA = req.Header.Get("User-Agent")
		gotAccept = req.Header.Get("Accept")
		return htmlResponder(listingPage())(req)
	})

	s := newTestScraper(t, cfg, transport)
	if _, err := s.Run(context.Background(), nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotUA != cfg.UserAgent {
		t.Fatalf("user agent = %q", gotUA)
	}
	if !strings.HasPrefix(gotAccept, "text/html") {
		t.Fatalf("accept = %q", gotAccept)
	}
}

func TestPacerSpacesRequests(t *testing.T) {
	p := newPacer(40 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Fatalf("two waits took %v, want at least two delays", elapsed)
	}
}

func TestPacerCancelled(t *testing.T) {
	p := newPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected an error from a cancelled wait")
	}

	if err := newPacer(0).Wait(context.Background()); err != nil {
		t.Fatalf("zero delay should not block: %v", err)
	}
}

type sliceWriter struct {
	out *[]*models.BursaryRecord
}

func (w *sliceWriter) Write(records []*models.BursaryRecord) error {
	*w.out = append(*w.out, records...)
	return nil
}

func (w *sliceWriter) Close() error { return nil }

func (w *sliceWriter) Validate() error {
	if len(*w.out) == 0 {
		return errors.New("no records")
	}
	return nil
}
