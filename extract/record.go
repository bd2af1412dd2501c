package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"home_scout/models"
)

// ExtractRaw pulls the unparsed field strings out of one listing node. The
// full text of the node is captured too: real pages frequently bury the
// interesting data outside the child elements the cascades expect, and the
// parsers fall back to scanning it.
func (pl *Pipeline) ExtractRaw(node *goquery.Selection) models.RawFields {
	raw := models.RawFields{
		PriceText:   ResolveText(node, pl.PriceSelectors),
		AddressText: ResolveText(node, pl.AddressSelectors),
		FullText:    strings.TrimSpace(node.Text()),
	}

	if img := ResolveAttr(node, pl.ImageSelectors, pl.ImageAttrs...); img != "" {
		raw.ImageURL = pl.AbsoluteURL(img)
	}

	if href := ResolveAttr(node, pl.LinkSelectors, "href"); href != "" {
		raw.PropertyURL = pl.FilterPropertyURL(pl.AbsoluteURL(href))
	}

	return raw
}

// AbsoluteURL rewrites protocol-relative and root-relative URLs against the
// site origin. Already-absolute URLs and data URIs pass through unchanged.
func (pl *Pipeline) AbsoluteURL(raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return strings.TrimSuffix(pl.SiteOrigin, "/") + raw
	default:
		return raw
	}
}

// FilterPropertyURL discards URLs that point at anything other than a
// listing: mail/phone/script pseudo-protocols, in-page anchors, and
// agent/contact pages. A discarded URL comes back as "".
func (pl *Pipeline) FilterPropertyURL(u string) string {
	lower := strings.ToLower(u)
	for _, fragment := range pl.DenyURLFragments {
		if strings.Contains(lower, fragment) {
			return ""
		}
	}
	return u
}
