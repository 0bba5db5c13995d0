package store

// DedupSet tracks canonical URLs that must not be fetched or persisted
// again. It covers rows loaded from an existing CSV file plus rows
// appended during the current run. Not safe for concurrent use; the
// crawl loop is single-threaded.
type DedupSet struct {
	seen map[string]struct{}
}

// NewDedupSet returns an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[string]struct{})}
}

// Add records a canonical URL as persisted.
func (d *DedupSet) Add(url string) {
	d.seen[url] = struct{}{}
}

// Contains reports whether the canonical URL was already persisted.
func (d *DedupSet) Contains(url string) bool {
	_, ok := d.seen[url]
	return ok
}

// Len returns the number of distinct persisted URLs.
func (d *DedupSet) Len() int {
	return len(d.seen)
}
