package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// PageRenderer produces a fully rendered DOM for a search URL. The browser
// package provides the real implementation; tests substitute a canned one.
type PageRenderer interface {
	Render(ctx context.Context, url, waitFor string) (*goquery.Document, string, error)
}
