package main

import (
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/go-scrape-bursaries/models"
	"github.com/aluiziolira/go-scrape-bursaries/pipeline"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func printSummary(out io.Writer, result *models.ScraperResult, p *pipeline.Pipeline, outputFile string) {
	t := newTable(out)
	t.SetTitle("Scrape complete")
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRows([]table.Row{
		{"Listing items", result.ListingItems},
		{"Qualifying links", result.EntryCount},
		{"Detail fetches", result.DetailFetches},
		{"Records written", p.Written()},
		{"Errors", result.ErrorCount},
	})
	if dropped, ok := p.GetMetrics()["validation_errors"].(map[string]int); ok {
		for _, k := range sortedKeys(dropped) {
			t.AppendRow(table.Row{"Dropped: " + k, dropped[k]})
		}
	}
	for _, k := range sortedKeys(result.SentinelCount) {
		t.AppendRow(table.Row{"Sentinel: " + k, result.SentinelCount[k]})
	}
	for _, k := range sortedKeys(result.ErrorsByType) {
		t.AppendRow(table.Row{"Error type: " + k, result.ErrorsByType[k]})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"Duration", result.EndTime.Sub(result.StartTime).Round(time.Millisecond)})
	if p.Written() > 0 {
		t.AppendRow(table.Row{"Output file", outputFile})
	}
	t.Render()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
