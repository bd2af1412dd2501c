package extract

// NumericRule bounds one numeric field and supplies the value used when no
// plausible match is found. Bounds are inclusive.
type NumericRule struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
}

func (r NumericRule) inRange(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Pipeline is the single configuration object for one site's extraction
// pass: container discovery, per-field selector cascades, deny lists, and
// numeric acceptance rules. Listing sites drift their markup constantly, so
// everything that used to be hard-coded lives here and is loaded from the
// per-site YAML.
type Pipeline struct {
	// SiteOrigin is used to absolutize root-relative URLs, e.g.
	// "https://www.example-homes.com".
	SiteOrigin string `yaml:"site_origin"`

	// ContainerCandidates are tried in ranked order when counting listing
	// cards. ContainerPrimary is the fixed first choice; if it matches
	// nothing, ContainerFallbacks are walked in priority order.
	ContainerPrimary    string   `yaml:"container_primary"`
	ContainerCandidates []string `yaml:"container_candidates"`
	ContainerFallbacks  []string `yaml:"container_fallbacks"`

	// Per-field selector cascades, most specific first.
	PriceSelectors   []string `yaml:"price_selectors"`
	AddressSelectors []string `yaml:"address_selectors"`
	ImageSelectors   []string `yaml:"image_selectors"`
	LinkSelectors    []string `yaml:"link_selectors"`

	// ImageAttrs is the attribute fallback order for lazy-loaded images.
	ImageAttrs []string `yaml:"image_attrs"`

	// DenyPhrases invalidate price parsing entirely (case-insensitive
	// substring match). DenyURLFragments discard a property URL back to
	// empty.
	DenyPhrases      []string `yaml:"deny_phrases"`
	DenyURLFragments []string `yaml:"deny_url_fragments"`

	// PriceMin/PriceMax are exclusive bounds on the parsed price.
	PriceMin int `yaml:"price_min"`
	PriceMax int `yaml:"price_max"`

	Beds  NumericRule `yaml:"beds"`
	Baths NumericRule `yaml:"baths"`
	SqFt  NumericRule `yaml:"sqft"`
}

// DefaultPipeline returns the rules that work on a typical listings page.
// Site YAML files override whatever they need.
func DefaultPipeline() Pipeline {
	return Pipeline{
		ContainerPrimary: ".property-card",
		ContainerCandidates: []string{
			".property-card",
			".listing-card",
			".search-result-card",
			"[class*='property-item']",
			"[class*='listing-item']",
			"[class*='property']",
			"[class*='listing']",
			"article",
		},
		ContainerFallbacks: []string{
			".listing-card",
			"[class*='property-item']",
			"[class*='property']",
			"[class*='listing']",
			"article",
		},
		PriceSelectors: []string{
			".property-price",
			".listing-price",
			".price",
			"[class*='price']",
			"[data-testid='property-price']",
		},
		AddressSelectors: []string{
			".property-address",
			".listing-address",
			".address",
			"[class*='address']",
			"[data-testid='property-address']",
		},
		ImageSelectors: []string{
			".property-image img",
			".listing-photo img",
			"picture img",
			"img",
		},
		LinkSelectors: []string{
			"a.property-link",
			"a[href*='/property']",
			"a[href*='/home']",
			"a[href*='/listing']",
			"a[href]",
		},
		ImageAttrs: []string{"src", "data-src", "data-lazy-src", "data-original"},
		DenyPhrases: []string{
			"call for price",
			"price upon request",
			"contact for price",
			"tbd",
			"sold",
			"off market",
		},
		DenyURLFragments: []string{
			"mailto:",
			"tel:",
			"javascript:",
			"#",
			"/agent",
			"/agents",
			"/contact",
			"/office",
		},
		PriceMin: 10_000,
		PriceMax: 10_000_000,
		Beds:     NumericRule{Min: 1, Max: 10, Default: 3},
		Baths:    NumericRule{Min: 1, Max: 10, Default: 2},
		SqFt:     NumericRule{Min: 500, Max: 10_000, Default: 1500},
	}
}
