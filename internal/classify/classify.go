package classify

import (
	"net/url"
	"regexp"
	"strings"
)

// Host is the only host this crawler visits. Bare "fragrantica.com"
// links are rewritten to it during canonicalization.
const Host = "www.fragrantica.com"

// Kind is the classification outcome for a URL.
type Kind int

// Classification outcomes. Exactly one applies to any input string.
const (
	// KindMalformed means the input could not be parsed as an absolute
	// HTTP(S) URL on the target host.
	KindMalformed Kind = iota

	// KindIrrelevant means the URL parses but is neither a perfume page
	// nor a whitelisted index page.
	KindIrrelevant

	// KindItem is a perfume detail page: /perfume/<brand>/<slug>-<id>.html.
	KindItem

	// KindIndex is a brand directory page followed for link discovery
	// only: /designers/<slug>.html.
	KindIndex
)

// String returns a short name for the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindIndex:
		return "index"
	case KindIrrelevant:
		return "irrelevant"
	default:
		return "malformed"
	}
}

// Result is the outcome of classifying one URL.
type Result struct {
	// Kind is the classification outcome.
	Kind Kind

	// Canonical is the normalized absolute URL, the identity key used
	// for dedup and persistence. Empty for KindMalformed.
	Canonical string
}

// itemPathRe matches perfume detail page paths.
// The shape is /perfume/<brand-slug>/<name-slug>-<numeric id>.html.
var itemPathRe = regexp.MustCompile(`(?i)^/perfume/[^/]+/[^/]+-\d+\.html$`)

// indexPathRe matches brand directory pages, the only listing shape we
// follow for discovery.
var indexPathRe = regexp.MustCompile(`(?i)^/designers/[^/]+\.html$`)

// avoidPrefixes are site sections that are rate-limited or irrelevant.
// Links under these paths are never followed.
var avoidPrefixes = []string{
	"/board/",
	"/search/",
	"/news/",
	"/articles/",
	"/perfumery/",
}

// assetSuffixes are obvious non-HTML resources.
var assetSuffixes = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".css", ".js", ".json", ".xml",
}

// trackingParams are query parameters stripped during canonicalization.
// They identify campaigns, not pages.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"ref":     true,
	"srsltid": true,
}

// Classify determines what kind of page rawURL points at.
// The base URL, when non-nil, resolves relative references first.
// Classify is total: any input string yields exactly one Result.
func Classify(rawURL string, base *url.URL) Result {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Result{Kind: KindMalformed}
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	canonical, ok := canonicalize(u)
	if !ok {
		return Result{Kind: KindMalformed}
	}

	path := canonical.Path
	if path == "" {
		path = "/"
	}

	if canonical.Host != Host {
		return Result{Kind: KindIrrelevant, Canonical: canonical.String()}
	}

	lower := strings.ToLower(path)
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return Result{Kind: KindIrrelevant, Canonical: canonical.String()}
		}
	}
	for _, prefix := range avoidPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return Result{Kind: KindIrrelevant, Canonical: canonical.String()}
		}
	}

	if itemPathRe.MatchString(path) {
		// Item identity ignores the query string entirely.
		canonical.RawQuery = ""
		return Result{Kind: KindItem, Canonical: canonical.String()}
	}
	if indexPathRe.MatchString(path) {
		return Result{Kind: KindIndex, Canonical: canonical.String()}
	}

	return Result{Kind: KindIrrelevant, Canonical: canonical.String()}
}

// canonicalize normalizes a parsed URL into its identity form:
// lowercase scheme and host, bare host forced to www, fragment dropped,
// tracking parameters stripped, empty path made "/".
func canonicalize(u *url.URL) (*url.URL, bool) {
	if u.Scheme == "" || u.Host == "" {
		return nil, false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, false
	}

	c := *u
	c.Scheme = scheme
	c.Host = strings.ToLower(u.Host)
	if c.Host == "fragrantica.com" {
		c.Host = Host
	}
	c.Fragment = ""
	if c.Path == "" {
		c.Path = "/"
	}

	if c.RawQuery != "" {
		values := c.Query()
		for key := range values {
			if trackingParams[key] || strings.HasPrefix(strings.ToLower(key), "utm_") {
				values.Del(key)
			}
		}
		c.RawQuery = values.Encode()
	}

	return &c, true
}

// IsItemURL reports whether rawURL classifies as a perfume detail page.
func IsItemURL(rawURL string) bool {
	return Classify(rawURL, nil).Kind == KindItem
}
