// Package politeness owns all crawl timing and identity state: the base
// delay with per-request jitter, the session/cooldown cycle, and the
// rotation through proxy/User-Agent/Accept-Language identities.
//
// All state transitions are deterministic functions of counters; only
// the sleep durations themselves are randomized. The scheduler is owned
// by the single crawl loop and is not safe for concurrent use.
package politeness
