package extract

import (
	"log"

	"github.com/PuerkitoBio/goquery"

	"home_scout/models"
)

// Collect runs one full extraction pass over a rendered page: locate the
// listing cards, truncate to maxCount, then extract/parse/finalize each node
// in DOM order. A rejected listing is simply omitted; the pass never fails
// because of one bad card.
func (pl *Pipeline) Collect(doc *goquery.Document, city, state string, maxCount int) ([]models.PropertyRecord, models.CollectStats) {
	stats := models.CollectStats{}

	selector, found := Locate(doc, pl)
	stats.Selector = selector
	stats.Found = found
	if found == 0 {
		log.Printf("Collect: no listings found for %s, %s", city, state)
		return nil, stats
	}

	nodes := doc.Find(selector)
	if maxCount > 0 && found > maxCount {
		nodes = nodes.Slice(0, maxCount)
	}

	var records []models.PropertyRecord
	nodes.Each(func(i int, node *goquery.Selection) {
		stats.Scanned++
		raw := pl.ExtractRaw(node)
		record := pl.Finalize(raw, city, state, i)
		if record == nil {
			stats.Rejected++
			return
		}
		records = append(records, *record)
	})
	stats.Accepted = len(records)

	log.Printf("Collect: %s, %s: %d found, %d scanned, %d accepted, %d rejected (selector %q)",
		city, state, stats.Found, stats.Scanned, stats.Accepted, stats.Rejected, selector)
	return records, stats
}
