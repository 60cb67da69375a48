package sales

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned when a caller-supplied argument violates a
// documented constraint. It is never retried.
var ErrInvalidParameter = errors.New("invalid parameter")

// InvalidParameter wraps ErrInvalidParameter with a formatted reason.
func InvalidParameter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// RequireFinite rejects NaN and infinite arguments.
func RequireFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return InvalidParameter("%s must be a finite number, got %v", name, v)
	}
	return nil
}

// NoData marks a result whose filter matched zero rows. It is carried inside
// results rather than returned as an error so callers can render it.
type NoData struct {
	Filter string `json:"filter"`
	Value  string `json:"value"`
}

func (n *NoData) String() string {
	switch n.Filter {
	case "category":
		return fmt.Sprintf("No data found for category '%s'", n.Value)
	case "sku":
		return fmt.Sprintf("No data found for SKU %s", n.Value)
	}
	return fmt.Sprintf("No data found for %s %s", n.Filter, n.Value)
}
