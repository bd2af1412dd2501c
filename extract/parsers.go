package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Regex cascades are ordered most specific first. Range checks on every
// numeric parser reject plausible-looking garbage, e.g. a unit number "2"
// being read as 2 beds.
var (
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})+(?:\.\d{2})?`),
		regexp.MustCompile(`\$\s?\d+(?:\.\d{2})?`),
		regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`),
	}

	bedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d+)\s*(?:bed(?:room)?s?|br|bds?)\b`),
		regexp.MustCompile(`(?i)\b(\d+)\s*b\b`),
	}

	bathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d+(?:\.\d)?)\s*(?:bath(?:room)?s?|ba)\b`),
		regexp.MustCompile(`(?i)\b(\d+(?:\.\d)?)\s*bths?\b`),
	}

	sqftPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,2},\d{3}|\d{3,5})\s*(?:sq\.?\s*ft\.?|sqft|square\s+feet|sf)\b`),
	}
)

// ParsePrice scans the candidate text and then the full-text corpus for a
// plausible listing price. The matched text is returned verbatim as the
// canonical string form, alongside its numeric value. A deny phrase
// anywhere ("call for price", "sold", ...) means there is no real price and
// the whole scan is abandoned.
func (pl *Pipeline) ParsePrice(candidate, corpus string) (string, int, bool) {
	combined := strings.ToLower(candidate + " " + corpus)
	for _, phrase := range pl.DenyPhrases {
		if strings.Contains(combined, phrase) {
			return "", 0, false
		}
	}

	for _, source := range []string{candidate, corpus} {
		if source == "" {
			continue
		}
		for _, re := range pricePatterns {
			for _, match := range re.FindAllString(source, -1) {
				value := priceValue(match)
				if value > pl.PriceMin && value < pl.PriceMax {
					return strings.TrimSpace(match), value, true
				}
			}
		}
	}
	return "", 0, false
}

func priceValue(match string) int {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(match)
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		cleaned = cleaned[:dot]
	}
	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return value
}

const streetSuffixes = `Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd|Court|Ct|Place|Pl|Way|Terrace|Ter|Circle|Cir|Parkway|Pkwy`

// ParseAddress tries three street-address patterns of decreasing
// specificity, each anchored on the target city so stray numbers elsewhere
// in the card text are not mistaken for an address. The captured street
// span must be 5-50 characters and contain a digit; the final form always
// ends with ", city, state".
func ParseAddress(candidate, corpus, city, state string) (string, bool) {
	cityPat := `[\s,]+` + regexp.QuoteMeta(city) + `\b`
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+\s+[A-Za-z0-9'.\s]+?\s(?:` + streetSuffixes + `)\.?)` + cityPat),
		regexp.MustCompile(`(?i)(\d+\s+[A-Za-z'.\s]{3,40}?)` + cityPat),
		regexp.MustCompile(`(?i)(\d+\s+\S+(?:\s+\S+){0,4}?)` + cityPat),
	}

	for _, source := range []string{candidate, corpus} {
		if source == "" {
			continue
		}
		for _, re := range patterns {
			m := re.FindStringSubmatch(source)
			if m == nil {
				continue
			}
			street := strings.Trim(strings.TrimSpace(m[1]), ",")
			if len(street) < 5 || len(street) > 50 || !containsDigit(street) {
				continue
			}
			return street + ", " + city + ", " + state, true
		}
	}
	return "", false
}

// ParseBeds returns the first in-range bed count from the candidate text or
// the corpus, falling back to the rule default.
func (pl *Pipeline) ParseBeds(candidate, corpus string) int {
	if v, ok := scanInt(bedPatterns, candidate, corpus, pl.Beds); ok {
		return v
	}
	return int(pl.Beds.Default)
}

// ParseBaths works like ParseBeds but tolerates one decimal (2.5 baths).
func (pl *Pipeline) ParseBaths(candidate, corpus string) float64 {
	if v, ok := scanFloat(bathPatterns, candidate, corpus, pl.Baths); ok {
		return v
	}
	return pl.Baths.Default
}

// ParseSqFt strips grouping commas before the range check.
func (pl *Pipeline) ParseSqFt(candidate, corpus string) int {
	if v, ok := scanInt(sqftPatterns, candidate, corpus, pl.SqFt); ok {
		return v
	}
	return int(pl.SqFt.Default)
}

func scanInt(patterns []*regexp.Regexp, candidate, corpus string, rule NumericRule) (int, bool) {
	v, ok := scanFloat(patterns, candidate, corpus, rule)
	return int(v), ok
}

func scanFloat(patterns []*regexp.Regexp, candidate, corpus string, rule NumericRule) (float64, bool) {
	for _, source := range []string{candidate, corpus} {
		if source == "" {
			continue
		}
		for _, re := range patterns {
			for _, m := range re.FindAllStringSubmatch(source, -1) {
				raw := strings.ReplaceAll(m[1], ",", "")
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					continue
				}
				if rule.inRange(v) {
					return v, true
				}
			}
		}
	}
	return 0, false
}

func containsDigit(s string) bool {
	for _, c := range s {
		if c >= '0' && c <= '9' {
			return true
		}
	}
	return false
}
