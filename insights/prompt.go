package insights

import (
	"fmt"
	"strings"

	"home_scout/models"
)

// BuildRecordPrompt lays out one listing as labeled lines for the model.
// Synthesized addresses are flagged so the model does not treat them as
// verified locations.
func BuildRecordPrompt(record *models.PropertyRecord, question string) string {
	var b strings.Builder

	b.WriteString("Listing:\n")
	fmt.Fprintf(&b, "- Address: %s", record.Address)
	if record.AddressIsSynthesized {
		b.WriteString(" (approximate, exact address unavailable)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Price: %s (%s)\n", record.Price, record.PriceRange)
	fmt.Fprintf(&b, "- Type: %s\n", record.PropertyType)
	fmt.Fprintf(&b, "- Beds/Baths: %d / %g\n", record.Beds, record.Baths)
	fmt.Fprintf(&b, "- Size: %d sqft\n", record.SqFt)
	if record.PropertyURL != "" {
		fmt.Fprintf(&b, "- URL: %s\n", record.PropertyURL)
	}

	b.WriteString("\nQuestion: ")
	if question == "" {
		question = "Summarize this listing for a prospective buyer in two sentences."
	}
	b.WriteString(question)

	return b.String()
}

// BuildMarketPrompt lays out a batch of listings for a market-level question.
func BuildMarketPrompt(records []models.PropertyRecord, city, state, question string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Market: %s, %s (%d listings)\n", city, state, len(records))
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s | %s | %d bd / %g ba | %d sqft | %s\n",
			i+1, r.Address, r.Price, r.Beds, r.Baths, r.SqFt, r.PropertyType)
	}

	b.WriteString("\nQuestion: ")
	if question == "" {
		question = "What stands out about pricing and inventory in this market?"
	}
	b.WriteString(question)

	return b.String()
}
