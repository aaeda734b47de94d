package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one closing-date heuristic. Attempt scans sel and returns a
// candidate and true on a plausible match.
type Strategy interface {
	Name() string
	Attempt(sel *goquery.Selection) (string, bool)
}

// DefaultStrategies returns the closing-date cascade in priority order.
func DefaultStrategies(keywords []string) []Strategy {
	return []Strategy{
		NewLineScan(keywords),
		NewHeadingParagraph(keywords),
		NewRegexCapture(keywords),
		NewEmphasisSibling(keywords),
		NewTableCell(keywords),
	}
}

// LineScan looks for a keyword on each text line and takes the rest of the
// line, or the next line when the rest is too short.
type LineScan struct {
	keywords keywordSet
}

func NewLineScan(keywords []string) *LineScan {
	return &LineScan{keywords: newKeywordSet(keywords)}
}

func (s *LineScan) Name() string { return "line-scan" }

func (s *LineScan) Attempt(sel *goquery.Selection) (string, bool) {
	var lines []string
	for _, line := range textLines(sel) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		for _, p := range s.keywords.patterns {
			loc := p.FindStringIndex(line)
			if loc == nil {
				continue
			}
			candidate := strings.TrimSpace(strings.TrimLeft(line[loc[1]:], ": \t"))
			if runeLen(candidate) <= 2 && i+1 < len(lines) {
				candidate = lines[i+1]
			}
			if runeLen(candidate) > 2 {
				return candidate, true
			}
		}
	}
	return "", false
}

// HeadingParagraph finds a heading that names a keyword and reads the first
// paragraph-like element after it.
type HeadingParagraph struct {
	keywords keywordSet
}

func NewHeadingParagraph(keywords []string) *HeadingParagraph {
	return &HeadingParagraph{keywords: newKeywordSet(keywords)}
}

func (s *HeadingParagraph) Name() string { return "heading" }

func (s *HeadingParagraph) Attempt(sel *goquery.Selection) (string, bool) {
	var found string
	sel.Find("h2, h3, h4, h5").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !s.keywords.contains(h.Text()) {
			return true
		}
		next := h.NextAllFiltered("p, div, ul, ol, span").First()
		if next.Length() == 0 {
			return true
		}
		candidate := collapseSpace(firstLine(next.Text()))
		if n := runeLen(candidate); n > 3 && n < 100 {
			found = candidate
			return false
		}
		return true
	})
	return found, found != ""
}

// RegexCapture matches "<keyword>: <rest of line>" over the region text, trying
// keywords in priority order, and cuts the capture at the first full stop.
type RegexCapture struct {
	patterns []*regexp.Regexp
}

func NewRegexCapture(keywords []string) *RegexCapture {
	s := &RegexCapture{}
	for _, kw := range newKeywordSet(keywords).keywords {
		s.patterns = append(s.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(kw)+`[ \t]*:?[ \t]*([^\r\n]+)`))
	}
	return s
}

func (s *RegexCapture) Name() string { return "regex" }

func (s *RegexCapture) Attempt(sel *goquery.Selection) (string, bool) {
	text := sel.Text()
	for _, p := range s.patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := m[1]
		if i := strings.Index(candidate, "."); i >= 0 {
			candidate = candidate[:i]
		}
		candidate = strings.TrimSpace(firstLine(candidate))
		if n := runeLen(candidate); n > 3 && n < 100 {
			return candidate, true
		}
	}
	return "", false
}

// EmphasisSibling handles "<strong>Closing Date:</strong> 31 August" style
// markup: text after the colon inside the span, then the span's next sibling
// node, then the enclosing block's next sibling.
type EmphasisSibling struct {
	keywords keywordSet
}

func NewEmphasisSibling(keywords []string) *EmphasisSibling {
	return &EmphasisSibling{keywords: newKeywordSet(keywords)}
}

func (s *EmphasisSibling) Name() string { return "emphasis" }

func (s *EmphasisSibling) Attempt(sel *goquery.Selection) (string, bool) {
	var found string
	sel.Find("strong, b, em").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := span.Text()
		if !s.keywords.contains(text) {
			return true
		}
		if i := strings.Index(text, ":"); i >= 0 {
			if candidate := collapseSpace(text[i+1:]); plausible(candidate) {
				found = candidate
				return false
			}
		}
		if candidate := cleanSibling(nodeText(span.Get(0).NextSibling)); plausible(candidate) {
			found = candidate
			return false
		}
		block := span.Closest("p, div, li, td, h2, h3, h4, h5, h6")
		if block.Length() > 0 {
			if candidate := cleanSibling(block.Next().Text()); plausible(candidate) {
				found = candidate
				return false
			}
		}
		return true
	})
	return found, found != ""
}

// TableCell reads the cell to the right of a cell that names a keyword.
type TableCell struct {
	keywords keywordSet
}

func NewTableCell(keywords []string) *TableCell {
	return &TableCell{keywords: newKeywordSet(keywords)}
}

func (s *TableCell) Name() string { return "table" }

func (s *TableCell) Attempt(sel *goquery.Selection) (string, bool) {
	var found string
	sel.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td, th")
		for i := 0; i+1 < cells.Length(); i++ {
			if !s.keywords.contains(cells.Eq(i).Text()) {
				continue
			}
			if candidate := collapseSpace(cells.Eq(i + 1).Text()); plausible(candidate) {
				found = candidate
				return false
			}
		}
		return true
	})
	return found, found != ""
}

func cleanSibling(s string) string {
	return collapseSpace(strings.TrimLeft(firstLine(s), ": \t-–"))
}

func plausible(s string) bool {
	n := runeLen(s)
	return n >= 3 && n <= 100
}
