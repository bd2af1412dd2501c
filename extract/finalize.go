package extract

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"home_scout/models"
)

var (
	syntheticStreetNames    = []string{"Maple", "Oak", "Cedar", "Pine", "Elm", "Willow", "Birch", "Highland"}
	syntheticStreetSuffixes = []string{"St", "Ave", "Dr", "Ln", "Rd", "Ct"}
)

// Finalize turns raw fields into an immutable PropertyRecord, or nil when
// the listing is unusable. A listing with no discoverable, plausible price
// is not usable data no matter how complete its other fields are.
func (pl *Pipeline) Finalize(raw models.RawFields, city, state string, index int) *models.PropertyRecord {
	priceText, priceValue, ok := pl.ParsePrice(raw.PriceText, raw.FullText)
	if !ok {
		return nil
	}

	address, synthesized := pl.resolveAddress(raw, city, state)

	beds := pl.ParseBeds("", raw.FullText)
	baths := pl.ParseBaths("", raw.FullText)
	sqft := pl.ParseSqFt("", raw.FullText)
	propertyType := propertyTypeForBeds(beds)

	return &models.PropertyRecord{
		ObjectID:             newObjectID(index),
		Address:              address,
		AddressIsSynthesized: synthesized,
		Price:                priceText,
		PriceValue:           priceValue,
		Beds:                 beds,
		Baths:                baths,
		SqFt:                 sqft,
		ImageURL:             raw.ImageURL,
		PropertyURL:          raw.PropertyURL,
		PriceRange:           PriceRangeBucket(priceValue),
		PropertyType:         propertyType,
		Description:          buildDescription(beds, baths, sqft, propertyType, city, state, priceText),
		City:                 city,
		State:                state,
		CollectedAt:          time.Now(),
	}
}

// resolveAddress prefers the regex-parsed address, then the structurally
// extracted text, and as a last resort fabricates a placeholder street so
// every accepted record has a presentable address. Fabricated addresses are
// tagged so downstream consumers never mistake them for ground truth.
func (pl *Pipeline) resolveAddress(raw models.RawFields, city, state string) (string, bool) {
	if addr, ok := ParseAddress(raw.AddressText, raw.FullText, city, state); ok {
		return addr, false
	}

	structural := raw.AddressText
	if len(structural) >= 10 && len(structural) <= 60 && containsDigit(structural) {
		if !strings.Contains(strings.ToLower(structural), strings.ToLower(city)) {
			structural = structural + ", " + city + ", " + state
		}
		return structural, false
	}

	synthetic := fmt.Sprintf("%d %s %s, %s, %s",
		100+rand.Intn(9900),
		syntheticStreetNames[rand.Intn(len(syntheticStreetNames))],
		syntheticStreetSuffixes[rand.Intn(len(syntheticStreetSuffixes))],
		city, state)
	return synthetic, true
}

// PriceRangeBucket maps a numeric price to the coarse facet bucket.
func PriceRangeBucket(price int) string {
	switch {
	case price <= 0:
		return models.PriceRangeUnknown
	case price < 200_000:
		return models.PriceRangeUnder200K
	case price < 400_000:
		return models.PriceRange200To400K
	case price < 600_000:
		return models.PriceRange400To600K
	default:
		return models.PriceRangeOver600K
	}
}

// propertyTypeForBeds is a deliberate simplification carried over from the
// listing sources: bed count stands in for the actual listing type.
func propertyTypeForBeds(beds int) string {
	switch beds {
	case 1:
		return models.PropertyTypeCondo
	case 2:
		return models.PropertyTypeTownhouse
	default:
		return models.PropertyTypeSingleFam
	}
}

func buildDescription(beds int, baths float64, sqft int, propertyType, city, state, price string) string {
	return fmt.Sprintf("%s with %d bedrooms and %g bathrooms in %s, %s. Approximately %d sqft of living space, listed at %s.",
		propertyType, beds, baths, city, state, sqft, price)
}

func newObjectID(index int) string {
	return fmt.Sprintf("prop_%d_%d_%s", time.Now().UnixMilli(), index, uuid.NewString()[:8])
}

