// Package fetch performs single HTTP GETs through the transport
// identity chosen by the politeness scheduler. Each identity (proxy,
// User-Agent, Accept-Language) gets its own http.Client; HTTP and
// SOCKS5 proxies are both supported.
//
// Failures are classified into a small taxonomy and retried at most
// once, driven by an explicit state machine so failure semantics stay
// reproducible under test. A page that exhausts its retry is a skip for
// the caller, never a fatal error.
package fetch
