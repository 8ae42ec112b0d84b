package domain

// FailedExpiryDays is the day count reported alongside an unsuccessful probe.
const FailedExpiryDays int64 = -1

// ProbeResult is the outcome of resolving one domain: days until the
// registration lapses and whether the probe produced a usable answer.
type ProbeResult struct {
	// Domain is the target exactly as the caller supplied it.
	Domain string `json:"domain"`
	// ExpiryDays is the whole number of days until expiry, rounded down.
	// It is negative for already-expired domains and FailedExpiryDays on failure.
	ExpiryDays int64 `json:"expiryDays"`
	// Success is true when an expiry date was obtained from cache or WHOIS.
	Success bool `json:"success"`
}

// Succeeded builds a successful result.
func Succeeded(domain string, days int64) ProbeResult {
	return ProbeResult{Domain: domain, ExpiryDays: days, Success: true}
}

// Failed builds the sentinel result reported for any probe failure.
func Failed(domain string) ProbeResult {
	return ProbeResult{Domain: domain, ExpiryDays: FailedExpiryDays, Success: false}
}

// SuccessValue renders Success as the 0/1 gauge value scrapers expect.
func (r ProbeResult) SuccessValue() float64 {
	if r.Success {
		return 1
	}

	return 0
}
