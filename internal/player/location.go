package player

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"avplay/internal/filesystem"
)

// ResolveSource decides how an entry location is handed to a backend: as a
// path when it names an existing regular file, otherwise as a URL when it
// passes NormalizeURL.
func ResolveSource(location string) (Source, error) {
	if filesystem.IsRegularFile(location) {
		return Source{Kind: SourcePath, Location: location}, nil
	}
	if u, ok := NormalizeURL(location); ok {
		return Source{Kind: SourceURL, Location: u}, nil
	}
	return Source{}, fmt.Errorf("%w: %q", ErrUnplayableLocation, location)
}

// NormalizeURL validates an http(s) URL and returns it with a scheme.
//
// Strings without a scheme are accepted as https when they start with "//",
// or when their first path segment looks like a host name: "localhost" or a
// dotted name whose last label is alphabetic ("example.com/live").
func NormalizeURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	candidate := s
	if !strings.Contains(s, "://") {
		switch {
		case strings.HasPrefix(s, "//"):
			candidate = "https:" + s
		case looksLikeHost(strings.SplitN(s, "/", 2)[0]):
			candidate = "https://" + s
		default:
			return "", false
		}
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if !validHost(u.Hostname()) {
		return "", false
	}
	return candidate, true
}

func looksLikeHost(segment string) bool {
	host := segment
	if h, _, err := net.SplitHostPort(segment); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	return host == "localhost" || strings.Contains(host, ".")
}

func validHost(host string) bool {
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") || net.ParseIP(host) != nil {
		return true
	}
	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				return false
			}
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
