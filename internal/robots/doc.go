// Package robots gates the crawl behind robots.txt. Policies are
// fetched lazily per origin, cached for the process lifetime, and never
// refetched mid-run. A robots.txt that cannot be fetched fails open with
// a logged warning: an unreachable policy file must not silently halt
// the crawl, but rules that were fetched are always enforced.
package robots
