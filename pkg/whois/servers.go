package whois

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-faster/jx"
)

// defaultServers is the bundled suffix-to-server table.
//
//go:embed servers.json
var defaultServers []byte

// ErrNoServer is returned when neither a suffix entry nor a default server
// matches a domain.
var ErrNoServer = errors.New("no whois server for domain")

// ServerMap routes a domain to the WHOIS server responsible for it. Keys are
// public suffixes without a leading dot ("com", "co.uk"); the empty key holds
// the server used when no suffix matches. A ServerMap is read-only after
// construction and safe for concurrent use.
type ServerMap struct {
	servers map[string]string
}

// ParseServerMap decodes a JSON object mapping suffixes to servers. A value is
// either a host string or an object whose "host" field names the server; other
// fields and keys starting with "_" are ignored, as are null values.
func ParseServerMap(data []byte) (*ServerMap, error) {
	servers := make(map[string]string)

	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if strings.HasPrefix(key, "_") {
			return d.Skip()
		}

		var host string
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return fmt.Errorf("could not read server for %q: %w", key, err)
			}
			host = s
		case jx.Object:
			if err := d.Obj(func(d *jx.Decoder, field string) error {
				if field != "host" {
					return d.Skip()
				}
				s, err := d.Str()
				if err != nil {
					return fmt.Errorf("could not read host: %w", err)
				}
				host = s

				return nil
			}); err != nil {
				return fmt.Errorf("could not read server for %q: %w", key, err)
			}
		default:
			return d.Skip()
		}

		host = strings.TrimSpace(host)
		if host == "" {
			return nil
		}
		servers[strings.ToLower(strings.Trim(key, "."))] = host

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not parse server map: %w", err)
	}
	if len(servers) == 0 {
		return nil, errors.New("server map is empty")
	}

	return &ServerMap{servers: servers}, nil
}

// DefaultServerMap parses the bundled server table.
func DefaultServerMap() (*ServerMap, error) {
	return ParseServerMap(defaultServers)
}

// LoadServerMap reads a server table from path, or returns the bundled one
// when path is empty.
func LoadServerMap(path string) (*ServerMap, error) {
	if path == "" {
		return DefaultServerMap()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read server map: %w", err)
	}

	return ParseServerMap(data)
}

// ServerFor returns the server for the longest suffix of domain present in the
// map, falling back to the default entry. domain is expected to be normalized.
func (m *ServerMap) ServerFor(domain string) (string, error) {
	suffix := domain
	for {
		if host, ok := m.servers[suffix]; ok {
			return host, nil
		}
		i := strings.IndexByte(suffix, '.')
		if i < 0 {
			break
		}
		suffix = suffix[i+1:]
	}

	if host, ok := m.servers[""]; ok {
		return host, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoServer, domain)
}

// Len returns the number of entries, including the default one.
func (m *ServerMap) Len() int {
	return len(m.servers)
}
