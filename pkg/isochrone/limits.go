package isochrone

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

var (
	// ErrNoLimits is returned when a request carries no cost limits.
	ErrNoLimits = errors.New("isochrone: no distance limits")
	// ErrInvalidLimit is returned for limits that are not positive finite numbers.
	ErrInvalidLimit = errors.New("isochrone: invalid distance limit")
)

// NormalizeLimits validates limits and returns them deduplicated in
// ascending order. The input slice is not modified.
func NormalizeLimits(limits []float64) ([]float64, error) {
	if len(limits) == 0 {
		return nil, ErrNoLimits
	}
	for _, l := range limits {
		if math.IsNaN(l) || math.IsInf(l, 0) || l <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLimit, l)
		}
	}

	out := lo.Uniq(limits)
	sort.Float64s(out)
	return out, nil
}
