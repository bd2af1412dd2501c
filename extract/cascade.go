package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResolveText tries each selector in cascade order against the scope and
// returns the trimmed text of the first non-empty match. Not finding
// anything is a normal outcome, reported as "".
func ResolveText(scope *goquery.Selection, cascade []string) string {
	for _, sel := range cascade {
		text := strings.TrimSpace(scope.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// ResolveAttr walks the selector cascade and, for the first element found,
// tries each attribute name in order. Attribute fallbacks matter for images:
// lazy loaders park the real URL in data-src and friends.
func ResolveAttr(scope *goquery.Selection, cascade []string, attrs ...string) string {
	for _, sel := range cascade {
		node := scope.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range attrs {
			if val, ok := node.Attr(attr); ok {
				if val = strings.TrimSpace(val); val != "" {
					return val
				}
			}
		}
	}
	return ""
}
