package extract

import (
	"log"

	"github.com/PuerkitoBio/goquery"
)

// Locate decides which container selector actually identifies listing cards
// on this page. Every candidate is counted first; the fixed primary selector
// wins if it matched anything, otherwise the fallback priority list is
// walked in order. Zero matches everywhere is a legitimate empty page, not
// an error.
func Locate(doc *goquery.Document, pl *Pipeline) (string, int) {
	counts := make(map[string]int, len(pl.ContainerCandidates))
	for _, sel := range pl.ContainerCandidates {
		if n := doc.Find(sel).Length(); n > 0 {
			counts[sel] = n
		}
	}

	if n, ok := counts[pl.ContainerPrimary]; ok {
		return pl.ContainerPrimary, n
	}

	for _, sel := range pl.ContainerFallbacks {
		if n, ok := counts[sel]; ok {
			log.Printf("Locator: primary %q empty, using fallback %q (%d matches)", pl.ContainerPrimary, sel, n)
			return sel, n
		}
	}

	return "", 0
}
