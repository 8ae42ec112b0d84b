// Package whoisclient provides a whois.Client implementation that speaks the
// WHOIS protocol (RFC 3912) through github.com/likexian/whois, routing every
// query with a whois.ServerMap.
package whoisclient

import (
	"context"
	"domainprobe/pkg/logger"
	"domainprobe/pkg/whois"
	"fmt"
	"net"
	"strings"
	"time"

	whoislib "github.com/likexian/whois"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

// Client resolves the responsible server for a domain and queries it. It is
// safe for concurrent use: every lookup runs on its own protocol client.
type Client struct {
	servers *whois.ServerMap // servers routes a domain to its WHOIS server
	timeout time.Duration    // timeout bounds dialing, writing and reading one query
	dialer  proxy.Dialer     // dialer opens the TCP connection, possibly through a proxy
}

// Option customizes a Client.
type Option func(*Client)

// WithDialer replaces the connection dialer. The default honors the
// ALL_PROXY/NO_PROXY environment variables.
func WithDialer(dialer proxy.Dialer) Option {
	return func(c *Client) { c.dialer = dialer }
}

// Lookup normalizes domain, reduces it to its registrable name, picks the
// server from the server map and returns the server's reply. A reply that
// arrived before the query failed, such as the registry's answer when the
// registrar referral is unreachable, is returned without an error. The query itself
// cannot be interrupted; it ends at the latest after the configured timeout
// for each connection it opens.
func (c *Client) Lookup(ctx context.Context, domain string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("lookup abandoned: %w", err)
	}

	name, err := whois.NormalizeDomain(domain)
	if err != nil {
		return "", fmt.Errorf("malformed query: %w", err)
	}
	name = whois.RegistrableDomain(name)

	server, err := c.servers.ServerFor(name)
	if err != nil {
		return "", fmt.Errorf("could not select server: %w", err)
	}

	raw, err := whoislib.NewClient().
		SetTimeout(c.timeout).
		SetDialer(c.dialer).
		Whois(name, server)
	if err != nil {
		if strings.TrimSpace(raw) == "" {
			return "", fmt.Errorf("could not query %s for %s: %w", server, name, err)
		}
		// a failed referral or a server hanging up after a notice still
		// leaves the text received so far
		logger.Debug(ctx, "whois query ended with an error after a reply",
			zap.String("domain", name),
			zap.String("server", server),
			zap.Error(err))
	}

	return raw, nil
}

// Ensure Client conforms to the whois.Client interface at compile time.
var _ whois.Client = (*Client)(nil)

// New constructs a Client routing queries with servers. timeout applies to
// each connection a query opens, so a lookup abandoned by its caller still
// terminates on its own.
func New(servers *whois.ServerMap, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		servers: servers,
		timeout: timeout,
		dialer:  proxy.FromEnvironmentUsing(&net.Dialer{Timeout: timeout}),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}
