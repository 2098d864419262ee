// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns fetched article snapshots into canonical,
// destination-ready documents. The transform is pure and deterministic:
// identical input always yields identical output, which is what makes
// repeated runs converge on the same destination records.
package normalize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pdiddy/kb-sync/pkg/types"
)

// NormalizationError reports an article whose body could not be reduced to
// plain text. Isolated to the one article; the run continues.
type NormalizationError struct {
	ArticleID string
	Reason    string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalizing article %s: %s", e.ArticleID, e.Reason)
}

// Normalize strips markup from the article body, collapses whitespace, and
// assembles the canonical document. The document URL is the configured
// article base URL plus the article id and "/view", matching how the org
// publishes article links. Title and ids pass through unchanged.
func Normalize(a types.Article, articleBaseURL string) (types.Document, error) {
	if strings.TrimSpace(a.RawBody) == "" {
		return types.Document{}, &NormalizationError{ArticleID: a.ID, Reason: "empty body"}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(a.RawBody))
	if err != nil {
		return types.Document{}, &NormalizationError{ArticleID: a.ID, Reason: err.Error()}
	}

	text := collapseWhitespace(extractText(doc))
	if text == "" {
		return types.Document{}, &NormalizationError{ArticleID: a.ID, Reason: "no text content after markup stripping"}
	}

	return types.Document{
		ID:            a.ID,
		Title:         a.Title,
		Text:          text,
		URL:           ArticleURL(articleBaseURL, a.ID),
		ArticleNumber: a.ArticleNumber,
		URLName:       a.URLName,
		LastPublished: a.LastPublished,
	}, nil
}

// ArticleURL builds the public link for one article id.
func ArticleURL(base, id string) string {
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + id + "/view"
}

// extractText walks the parsed tree and joins text nodes with spaces.
// Plain Text() would run adjacent block elements together ("FirstSecond"
// for two paragraphs), which corrupts the indexed text.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style").Remove()

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Selection.Nodes {
		walk(n)
	}
	return b.String()
}

// collapseWhitespace trims the text and folds runs of whitespace,
// including newlines left behind by block elements, into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
