package probe

import (
	"context"
	"time"
)

// Probe performs WHOIS lookups and extracts expiry dates from the replies.
// Failures are *serrors.Error values whose kind tells them apart: timeouts and
// busy servers are transient, parse and transport failures are not.
//
//go:generate mockgen -package mockprobe -source=interface.go -destination=mock/mockprobe.go *
type Probe interface {
	// Once issues exactly one lookup for domain, bounded by the probe timeout.
	Once(ctx context.Context, domain string) (time.Time, error)
	// WithRetry repeats Once while it fails transiently, up to the attempt budget.
	WithRetry(ctx context.Context, domain string) (time.Time, error)
}
