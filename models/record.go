package models

import (
	"encoding/json"
	"time"
)

// Price range buckets used for faceted filtering in the search index.
const (
	PriceRangeUnder200K = "Under $200K"
	PriceRange200To400K = "$200K - $400K"
	PriceRange400To600K = "$400K - $600K"
	PriceRangeOver600K  = "Over $600K"
	PriceRangeUnknown   = "Unknown"
)

// Property type labels derived from bed count.
const (
	PropertyTypeCondo     = "Condo/Apartment"
	PropertyTypeTownhouse = "Townhouse/Condo"
	PropertyTypeSingleFam = "Single Family Home"
)

// RawFields holds the unparsed strings pulled from one listing node before
// any field parsing happens. FullText is the complete text content of the
// node and serves as the fallback corpus when structured selectors come up
// empty.
type RawFields struct {
	PriceText   string `json:"price_text"`
	AddressText string `json:"address_text"`
	ImageURL    string `json:"image_url"`
	PropertyURL string `json:"property_url"`
	FullText    string `json:"full_text"`
}

// PropertyRecord is the validated, normalized unit handed to the search
// index. It is created once per listing node and never mutated afterwards.
type PropertyRecord struct {
	ObjectID             string    `json:"objectID" db:"object_id"`
	Address              string    `json:"address" db:"address"`
	AddressIsSynthesized bool      `json:"addressIsSynthesized" db:"address_is_synthesized"`
	Price                string    `json:"price" db:"price"`
	PriceValue           int       `json:"priceValue" db:"price_value"`
	Beds                 int       `json:"beds" db:"beds"`
	Baths                float64   `json:"baths" db:"baths"`
	SqFt                 int       `json:"sqft" db:"sqft"`
	ImageURL             string    `json:"image" db:"image_url"`
	PropertyURL          string    `json:"url" db:"property_url"`
	PriceRange           string    `json:"priceRange" db:"price_range"`
	PropertyType         string    `json:"propertyType" db:"property_type"`
	Description          string    `json:"description" db:"description"`
	City                 string    `json:"city" db:"city"`
	State                string    `json:"state" db:"state"`
	Source               string    `json:"source" db:"source"`
	CollectedAt          time.Time `json:"collectedAt" db:"collected_at"`
}

// CollectStats reports what happened during one extraction pass over one
// page. Partial success is normal and surfaced through counts, never as a
// partial error.
type CollectStats struct {
	Selector string `json:"selector"`
	Found    int    `json:"found"`
	Scanned  int    `json:"scanned"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

func (s CollectStats) ToJSON() json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
