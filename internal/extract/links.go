package extract

import (
	"bytes"
	"net/url"

	"golang.org/x/net/html"
)

// DiscoverLinks walks the parsed document and returns the href of every
// anchor, resolved against pageURL. Order follows document order and
// duplicates are preserved; the frontier does its own dedup. A body the
// parser cannot make sense of yields an empty slice, never an error.
func DiscoverLinks(pageURL string, body []byte) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := attr(n, "href"); ok && href != "" {
				links = append(links, resolve(base, href))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return links
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
