package whois

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrEmptyDomain is returned for blank input.
var ErrEmptyDomain = errors.New("domain is empty")

// NormalizeDomain returns the canonical ASCII form of a domain name as it is
// sent to a WHOIS server:
//   - A URL is reduced to its host ("https://Example.com/x" -> "example.com")
//   - Surrounding whitespace and a trailing root dot are removed
//   - Internationalized labels are converted to punycode
//   - The result is lower-case
//
// Input that is not a valid host name is rejected.
func NormalizeDomain(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return "", fmt.Errorf("could not parse URL: %w", err)
		}
		host = u.Hostname()
	}

	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", ErrEmptyDomain
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid domain %q: %w", raw, err)
	}
	for _, label := range strings.Split(ascii, ".") {
		if label == "" {
			return "", fmt.Errorf("invalid domain %q: empty label", raw)
		}
	}

	return strings.ToLower(ascii), nil
}

// RegistrableDomain reduces a normalized host to the name a registry holds a
// record for, so "www.example.co.uk" is queried as "example.co.uk". A bare
// public suffix is returned unchanged; registries answer for those directly.
func RegistrableDomain(domain string) string {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return domain
	}

	return registrable
}
