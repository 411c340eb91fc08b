package leads

import (
	"net/url"
	"strings"
)

// CleanText collapses internal whitespace, including non-breaking spaces
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeLinkedinURL lower-cases scheme and host and drops the query string,
// fragment and trailing slash. Tracking parameters carry no identity on
// profile URLs, so the whole query goes. Anything that is not an http(s) URL
// on linkedin.com yields "".
func NormalizeLinkedinURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if host := u.Hostname(); host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return ""
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	return u.String()
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone trims surrounding whitespace and collapses inner runs
func NormalizePhone(s string) string {
	return CleanText(s)
}
