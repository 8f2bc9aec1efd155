package stage

import (
	"net/url"
	"strings"
)

// NormalizeURL trims the input and adds an https scheme when none is given.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

// Host returns the host of raw (port included), or raw itself when it
// cannot be parsed.
func Host(raw string) string {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	return u.Host
}

// BareHost is Host lowercased without a leading "www.".
func BareHost(raw string) string {
	return strings.TrimPrefix(strings.ToLower(Host(raw)), "www.")
}

// siteRoot reduces a result URL to scheme://host.
func siteRoot(raw string) string {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil || u.Host == "" {
		return NormalizeURL(raw)
	}
	return u.Scheme + "://" + u.Host
}
