package model

// Identity is the transport identity used for one or more consecutive
// requests: the proxy to route through and the browser-like headers to
// present. The politeness scheduler owns rotation between identities.
type Identity struct {
	// Proxy is the proxy URL (http://, https://, or socks5://).
	// Empty means a direct connection.
	Proxy string

	// UserAgent is the User-Agent header value.
	UserAgent string

	// AcceptLanguage is the Accept-Language header value.
	AcceptLanguage string
}

// DefaultUserAgents are realistic browser User-Agent strings used when
// the operator does not pin a specific one. Rotating among a small pool
// of current browser strings avoids the trivially blockable pattern of
// a single static bot UA.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// DefaultAcceptLanguages are Accept-Language values paired with the
// default User-Agent pool during rotation.
var DefaultAcceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8",
	"en-CA,en;q=0.9",
}
