package pipeline

import (
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-bursaries/models"
)

func TestIsFresh(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		lastUpdated string
		want        bool
	}{
		{name: "before cutoff", lastUpdated: "2023-06-01", want: false},
		{name: "after cutoff", lastUpdated: "2024-06-01", want: true},
		{name: "on cutoff", lastUpdated: "2024-01-01", want: true},
		{name: "unknown sentinel", lastUpdated: "Unknown", want: false},
		{name: "timeout sentinel", lastUpdated: "Timeout - Check Manually", want: false},
		{name: "free text", lastUpdated: "last week", want: false},
		{name: "timestamp", lastUpdated: "2024-03-15T00:00:00+00:00", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFresh(tt.lastUpdated, cutoff); got != tt.want {
				t.Fatalf("IsFresh(%q) = %v, want %v", tt.lastUpdated, got, tt.want)
			}
		})
	}
}

func TestIsFreshIgnoresCutoffTimeOfDay(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 17, 30, 0, 0, time.UTC)
	if !IsFresh("2024-01-01", cutoff) {
		t.Fatalf("a page updated on the cutoff day should be fresh")
	}
}

func TestSortByLastUpdated(t *testing.T) {
	mk := func(name string, updated models.Field) *models.BursaryRecord {
		return &models.BursaryRecord{Title: name, LastUpdated: updated}
	}
	records := []*models.BursaryRecord{
		mk("unknown-a", models.Sentinel(models.KindUnknown)),
		mk("old", models.Value("2023-02-01")),
		mk("timeout-b", models.Sentinel(models.KindTimeout)),
		mk("new", models.Value("2024-09-30")),
		mk("garbage-c", models.Value("sometime")),
		mk("mid", models.Value("2024-01-15")),
	}

	SortByLastUpdated(records)

	want := []string{"new", "mid", "old", "unknown-a", "timeout-b", "garbage-c"}
	for i, r := range records {
		if r.Title != want[i] {
			got := make([]string, len(records))
			for j, rr := range records {
				got[j] = rr.Title
			}
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
