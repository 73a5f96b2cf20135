package security

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
)

// HTTPWarning is attached to plain-http submissions.
const HTTPWarning = "HTTP URL detected. HTTPS is recommended for security."

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

var localhostNames = map[string]struct{}{
	"localhost":             {},
	"localhost.localdomain": {},
	"127.0.0.1":             {},
	"::1":                   {},
	"0.0.0.0":               {},
}

// Hostnames that are IPs in disguise: wildcard DNS services such as
// 10.0.0.1.nip.io, hex-encoded and decimal-encoded addresses.
var ipLikeHost = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}(\.[a-z]+)*$|^0x[0-9a-f]+$|^\d+$`)

// ValidatedURL is a target URL that passed validation.
type ValidatedURL struct {
	URL     string
	Host    string
	Warning string
}

// ValidateURL checks that raw is an http(s) URL pointing at a public host
// and returns its normalised form. A missing scheme defaults to https.
func ValidateURL(raw string) (ValidatedURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ValidatedURL{}, urlError("URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ValidatedURL{}, urlError(fmt.Sprintf("Invalid URL format: %v", err))
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ValidatedURL{}, urlError(fmt.Sprintf("Invalid scheme: %s. Only http and https are allowed", u.Scheme))
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ValidatedURL{}, urlError("URL must have a valid hostname")
	}
	if err := checkHost(host); err != nil {
		return ValidatedURL{}, err
	}

	v := ValidatedURL{URL: normalize(u, scheme, host), Host: host}
	if scheme == "http" {
		v.Warning = HTTPWarning
	}
	return v, nil
}

// checkHost rejects hosts that would let a submission reach internal services.
// No DNS resolution happens here.
func checkHost(host string) error {
	if _, ok := localhostNames[host]; ok || strings.HasSuffix(host, ".localhost") {
		return urlError("Localhost URLs are not allowed")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isPrivate(addr) {
			return urlError("Private IP addresses are not allowed: " + host)
		}
		return nil
	}

	if ipLikeHost.MatchString(host) {
		return urlError("Suspicious hostname pattern detected")
	}
	return nil
}

func isPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func normalize(u *url.URL, scheme, host string) string {
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	hostport := host
	switch {
	case port != "":
		hostport = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		hostport = "[" + host + "]"
	}

	path := u.EscapedPath()
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		path = "/"
	}

	out := scheme + "://" + hostport + path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// ExtractDomain returns the lowercase hostname of rawURL, or "" when it has none.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func urlError(msg string) error {
	return apperrors.NewValidationError(msg, map[string]string{"website_url": msg})
}
