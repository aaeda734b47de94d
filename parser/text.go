package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var innerWhitespace = regexp.MustCompile(`\s+`)

// collapseSpace folds runs of whitespace to one space and trims the ends.
func collapseSpace(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

// firstLine returns s up to its first line break, ignoring leading blank lines.
func firstLine(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// textLines flattens sel into lines, putting a break between every text node so
// that text from neighbouring elements never merges into one line.
func textLines(sel *goquery.Selection) []string {
	var parts []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range sel.Nodes {
		visit(n)
	}
	return strings.Split(strings.Join(parts, "\n"), "\n")
}

// nodeText returns the text content of a single node of any type.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	return goquery.NewDocumentFromNode(n).Text()
}

// keywordSet matches any of a fixed list of phrases, case-insensitively.
type keywordSet struct {
	keywords []string
	patterns []*regexp.Regexp
}

func newKeywordSet(keywords []string) keywordSet {
	ks := keywordSet{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		ks.keywords = append(ks.keywords, kw)
		ks.patterns = append(ks.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(kw)))
	}
	return ks
}

// contains reports whether s mentions any keyword.
func (ks keywordSet) contains(s string) bool {
	for _, p := range ks.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
