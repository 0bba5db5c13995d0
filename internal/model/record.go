package model

import (
	"strconv"
	"time"
)

// CSVHeader is the fixed column order of the output store.
// The order must never change: existing CSV files are read back on
// startup to rebuild the dedup set, keyed by the "url" column.
var CSVHeader = []string{"brand", "name", "rating", "votes", "url", "last_crawled"}

// Record is one extracted perfume page, destined for a single CSV row.
// The canonical URL is the identity key: at most one persisted record
// per URL across the lifetime of the output store.
//
// Design decision: Rating and Votes are pointers rather than zero-valued
// numbers because the source page may legitimately omit them. A missing
// rating and a rating of 0 are different facts, and the CSV keeps the
// distinction by writing an empty cell for nil.
type Record struct {
	// Brand is the perfume house (e.g. "Eight & Bob").
	Brand string

	// Name is the fragrance name as shown on the page, without the
	// trailing "for men/women/unisex" qualifier.
	Name string

	// Rating is the average rating out of 5, absent when unparseable.
	Rating *float64

	// Votes is the vote count behind Rating, absent when unparseable.
	Votes *int

	// URL is the canonical perfume page URL (identity key).
	URL string

	// CrawledAt is when the page was fetched, in UTC.
	CrawledAt time.Time
}

// Row renders the record as a CSV row matching CSVHeader.
// Optional fields render as empty cells when absent.
func (r *Record) Row() []string {
	rating := ""
	if r.Rating != nil {
		rating = strconv.FormatFloat(*r.Rating, 'f', -1, 64)
	}
	votes := ""
	if r.Votes != nil {
		votes = strconv.Itoa(*r.Votes)
	}
	return []string{
		r.Brand,
		r.Name,
		rating,
		votes,
		r.URL,
		r.CrawledAt.UTC().Format(time.RFC3339),
	}
}

// Complete reports whether the mandatory fields are present.
// Rating and votes are optional; brand, name, and URL are not.
func (r *Record) Complete() bool {
	return r.Brand != "" && r.Name != "" && r.URL != ""
}
