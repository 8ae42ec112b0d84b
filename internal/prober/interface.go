package prober

import (
	"context"
	"domainprobe/pkg/domain"
)

//go:generate mockgen -package mockprober -source=interface.go -destination=mock/mockprober.go *
type Prober interface {
	// Resolve reports how many days remain until name expires. It never fails:
	// any probe failure is folded into domain.Failed.
	Resolve(ctx context.Context, name string) domain.ProbeResult
}
