// Package metrics holds instrumentation settings shared across packages.
package metrics

// LookupBuckets are histogram boundaries in seconds for WHOIS round trips.
// Registry servers are slow and the lookup timeout defaults to 10s, so the
// range extends well past typical HTTP latency buckets.
var LookupBuckets = []float64{.05, .1, .25, .5, 1, 2, 3, 5, 7.5, 10, 15, 30} //nolint: gochecknoglobals

// Namespace prefixes every instrument the exporter registers about itself.
const Namespace = "domainprobe"
