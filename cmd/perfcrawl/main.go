// Package main provides the entry point for the perfcrawl CLI.
//
// Perfcrawl is a polite, resumable crawler for perfume pages on
// www.fragrantica.com. It discovers perfume detail pages from seed or
// brand directory URLs, extracts {brand, name, rating, votes}, and
// appends one CSV row per unique page, skipping pages already saved.
//
// Usage:
//
//	perfcrawl crawl --brand "Creed"
//	perfcrawl crawl --start-url <url> --max-pages 50
//
// See --help for all available options.
package main

// main is the entry point for perfcrawl.
func main() {
	Execute()
}
