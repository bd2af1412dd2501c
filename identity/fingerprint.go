package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"home_scout/models"
)

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"circle":    "cir",
		"terrace":   "ter",
		"highway":   "hwy",
		"parkway":   "pkwy",
		"square":    "sq",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"apartment": "apt",
		"suite":     "ste",
		"floor":     "fl",
		"building":  "bldg",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint identifies a listing across collection passes. ObjectID is
// minted fresh every pass, so dedupe keys on what the listing IS: the
// normalized address plus the attribute triple. Synthesized addresses are
// random, so those records key on price and attributes within the market
// instead.
func Fingerprint(r *models.PropertyRecord) string {
	var input string
	if r.AddressIsSynthesized {
		input = fmt.Sprintf("~|%s|%s|%d|%d|%g|%d",
			strings.ToLower(r.City), strings.ToLower(r.State),
			r.PriceValue, r.Beds, r.Baths, r.SqFt)
	} else {
		input = fmt.Sprintf("%s|%d|%g|%d",
			NormalizeAddress(r.Address), r.Beds, r.Baths, r.SqFt)
	}
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeAddress lowercases, strips punctuation, and collapses street
// suffixes and directions to their abbreviations.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	addr = multiSpaceRegex.ReplaceAllString(addr, " ")

	words := strings.Split(addr, " ")
	for i, w := range words {
		if abbrev, ok := streetReplacements[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
