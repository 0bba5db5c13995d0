// Package classify decides what kind of page a URL points at before any
// network traffic happens: a perfume detail page worth extracting, a
// brand index page worth following for links, or neither.
//
// Classification is a pure function. It never fetches, never caches,
// and never panics on garbage input; malformed URLs get their own
// outcome instead of an error so the crawl loop can count them like any
// other skip.
package classify
