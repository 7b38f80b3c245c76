package domain

import "strings"

// platformHosts is evaluated in order; the first match wins.
var platformHosts = []struct {
	host     string
	platform Platform
}{
	{"youtube.com", PlatformYouTube},
	{"youtu.be", PlatformYouTube},
	{"x.com", PlatformX},
	{"twitter.com", PlatformX},
	{"rumble.com", PlatformRumble},
	{"odysee.com", PlatformOdysee},
	{"t.me", PlatformTelegram},
	{"telegram.me", PlatformTelegram},
}

// ClassifyPlatform maps a hostname onto the platform that owns it.
// A host matches when it equals a table entry or is a subdomain of it,
// so "m.youtube.com" is YouTube while "box.com" is not X.
func ClassifyPlatform(host string) Platform {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	for _, e := range platformHosts {
		if HostMatches(host, e.host) {
			return e.platform
		}
	}
	return PlatformGeneric
}

// HostMatches reports whether host is domain or one of its subdomains.
func HostMatches(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
