package crawler

import "github.com/perfumedb/perfcrawl/internal/classify"

// entry is one frontier element: a canonical URL and its classified
// kind. Entries are owned by the frontier, removed on pop, and never
// mutated in place.
type entry struct {
	url  string
	kind classify.Kind
}

// frontier is the FIFO queue of not-yet-visited URLs. The seen map
// covers every URL ever considered, so a URL is enqueued at most once
// per run regardless of how many pages link to it.
type frontier struct {
	queue []entry
	seen  map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{seen: make(map[string]struct{})}
}

// observe marks a canonical URL as considered. It returns false when
// the URL was seen before, in which case the caller must not enqueue
// or count it again.
func (f *frontier) observe(url string) bool {
	if _, ok := f.seen[url]; ok {
		return false
	}
	f.seen[url] = struct{}{}
	return true
}

func (f *frontier) push(url string, kind classify.Kind) {
	f.queue = append(f.queue, entry{url: url, kind: kind})
}

func (f *frontier) pop() entry {
	e := f.queue[0]
	f.queue = f.queue[1:]
	return e
}

func (f *frontier) len() int {
	return len(f.queue)
}
