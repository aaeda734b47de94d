package pipeline

import (
	"sort"
	"time"

	"github.com/aluiziolira/go-scrape-bursaries/models"
)

const isoDateLayout = "2006-01-02"

// ParseLastUpdated parses the ISO date prefix of a last-updated string.
// Sentinels and other free text fail.
func ParseLastUpdated(s string) (time.Time, bool) {
	if len(s) < len(isoDateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(isoDateLayout, s[:len(isoDateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsFresh reports whether lastUpdated falls on or after cutoff's date.
// Unparsable values, sentinels included, are never fresh.
func IsFresh(lastUpdated string, cutoff time.Time) bool {
	t, ok := ParseLastUpdated(lastUpdated)
	if !ok {
		return false
	}
	y, m, d := cutoff.Date()
	return !t.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// SortByLastUpdated orders records newest first. Records without a parsable
// date go last and keep their relative order.
func SortByLastUpdated(records []*models.BursaryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, aok := ParseLastUpdated(records[i].LastUpdated.String())
		b, bok := ParseLastUpdated(records[j].LastUpdated.String())
		if aok != bok {
			return aok
		}
		if !aok {
			return false
		}
		return a.After(b)
	})
}
