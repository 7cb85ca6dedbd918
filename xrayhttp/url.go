package xrayhttp

import (
	"net/url"
	"strings"
)

// StripURL returns the URL without the query string, the fragment and the credentials.
// The path is kept as written, no percent-decoding.
func StripURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return stripURLString(raw)
	}
	return formatURL(u, false)
}

// stripURLString removes userinfo, query and fragment from the malformed URL.
func stripURLString(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		scheme, rest = "", raw
	}
	authority, path := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority, path = rest[:i], rest[i:]
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}
	if !ok {
		return authority + path
	}
	return scheme + "://" + authority + path
}

// recordedURL returns the URL recorded on the subsegments.
// It keeps the query string, but the credentials and the fragment are removed.
func recordedURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return formatURL(u, true)
}

func formatURL(u *url.URL, withQuery bool) string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}
	if u.Opaque != "" {
		b.WriteString(u.Opaque)
	} else {
		if u.Scheme != "" || u.Host != "" {
			b.WriteString("//")
			b.WriteString(u.Host)
		}
		b.WriteString(u.EscapedPath())
	}
	if withQuery && (u.ForceQuery || u.RawQuery != "") {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// GetHostname returns the host name of target.
// The target is a URL or a bare "host:port".
// The ports and the brackets of IPv6 literals are removed.
func GetHostname(target string) string {
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		return u.Hostname()
	}

	host := target
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	return trimPort(host)
}

func trimPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if i := strings.IndexByte(host, ']'); i >= 0 {
			return host[1:i]
		}
		return host[1:]
	}
	if strings.Count(host, ":") == 1 {
		host, _, _ = strings.Cut(host, ":")
	}
	return host
}
