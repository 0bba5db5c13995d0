package classify

import (
	"net/url"
	"regexp"
	"strings"
)

// idSuffixRe strips the trailing "-<id>.html" from a perfume file name.
var idSuffixRe = regexp.MustCompile(`(?i)-\d+\.html$`)

// alnumRunRe matches runs of letters and digits, used for slug building.
var alnumRunRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// nonAlnumRe matches everything that is not a letter or digit.
var nonAlnumRe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// apostropheRe matches apostrophe-like characters removed before slugging.
var apostropheRe = regexp.MustCompile("[’'`]+")

// spaceRe collapses whitespace runs.
var spaceRe = regexp.MustCompile(`\s+`)

// BrandNameFromURL derives human-readable brand and fragrance names from
// a perfume page path /perfume/<brand>/<name>-<id>.html. Both are empty
// when the URL does not have the item shape. These are fallbacks for
// pages whose markup failed to yield the fields.
func BrandNameFromURL(rawURL string) (brand, name string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}

	parts := make([]string, 0, 3)
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 3 || !strings.EqualFold(parts[0], "perfume") {
		return "", ""
	}

	brand = deslug(parts[1])
	name = deslug(idSuffixRe.ReplaceAllString(parts[2], ""))
	return brand, name
}

// deslug turns a URL path segment back into readable text.
func deslug(s string) string {
	s = strings.ReplaceAll(s, "%26", "&")
	s = strings.ReplaceAll(s, "%20", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return CleanSpace(s)
}

// CleanSpace collapses internal whitespace and trims the ends.
func CleanSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// DesignersSlug converts a brand name into the slug used by brand index
// pages, e.g. "Eight & Bob" -> "Eight-and-Bob".
func DesignersSlug(brand string) string {
	s := strings.TrimSpace(brand)
	s = apostropheRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&", "and")
	s = nonAlnumRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// PerfumeSlug converts a brand name into the slug form used inside
// perfume page paths, e.g. "Eight & Bob" -> "Eight-Bob". Used for
// pre-filtering discovered links in brand mode.
func PerfumeSlug(brand string) string {
	return strings.Join(alnumRunRe.FindAllString(brand, -1), "-")
}

// IndexURLForBrand returns the brand directory URL used to seed a crawl
// when only a brand name is given.
func IndexURLForBrand(brand string) string {
	return "https://" + Host + "/designers/" + DesignersSlug(brand) + ".html"
}
