// Package whois defines the WHOIS lookup capability the probe engine relies
// on, the server map that routes a domain to its WHOIS server, and the domain
// normalization applied before a query goes on the wire.
package whois

import "context"

// Client sends one WHOIS query for a domain and returns the raw response text.
// Implementations may block for the whole network round trip; callers that
// need to bound or abandon a lookup must do so themselves.
//
//go:generate mockgen -package mockwhois -source=interface.go -destination=mock/mockwhois.go *
type Client interface {
	// Lookup returns the raw WHOIS reply for domain, or an error when the query
	// is malformed, no server is known for the domain or the network fails.
	Lookup(ctx context.Context, domain string) (string, error)
}
