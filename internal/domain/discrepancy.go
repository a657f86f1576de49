package domain

import (
	"fmt"
	"math"
)

// QuantityDiscrepancy captures ordered vs. delivered quantities and the
// derived discrepancy between them. It is computed once, at line-item
// construction, and never mutated afterwards.
type QuantityDiscrepancy struct {
	ordered   int
	delivered int
}

// NewQuantityDiscrepancy creates a discrepancy from an ordered and a
// delivered quantity. Both must be non-negative.
func NewQuantityDiscrepancy(ordered, delivered int) (QuantityDiscrepancy, error) {
	if ordered < 0 {
		return QuantityDiscrepancy{}, NewValidationError("quantity_ordered",
			"ordered quantity cannot be negative")
	}
	if delivered < 0 {
		return QuantityDiscrepancy{}, NewValidationError("quantity_delivered",
			"delivered quantity cannot be negative")
	}
	return QuantityDiscrepancy{ordered: ordered, delivered: delivered}, nil
}

// Ordered returns the ordered quantity
func (d QuantityDiscrepancy) Ordered() int { return d.ordered }

// Delivered returns the delivered quantity
func (d QuantityDiscrepancy) Delivered() int { return d.delivered }

// Discrepancy returns ordered minus delivered. Positive means
// under-delivery, negative means over-delivery.
func (d QuantityDiscrepancy) Discrepancy() int { return d.ordered - d.delivered }

// Percentage returns the discrepancy as a percentage of the ordered
// quantity. Zero when nothing was ordered.
func (d QuantityDiscrepancy) Percentage() float64 {
	if d.ordered == 0 {
		return 0
	}
	return float64(d.Discrepancy()) / float64(d.ordered) * 100
}

// HasDiscrepancy reports whether ordered and delivered differ
func (d QuantityDiscrepancy) HasDiscrepancy() bool { return d.Discrepancy() != 0 }

// IsUnderDelivery reports whether fewer units arrived than were ordered
func (d QuantityDiscrepancy) IsUnderDelivery() bool { return d.Discrepancy() > 0 }

// IsOverDelivery reports whether more units arrived than were ordered
func (d QuantityDiscrepancy) IsOverDelivery() bool { return d.Discrepancy() < 0 }

// ExceedsThreshold reports whether the absolute discrepancy percentage
// is above the given threshold percentage.
func (d QuantityDiscrepancy) ExceedsThreshold(thresholdPercent float64) bool {
	return math.Abs(d.Percentage()) > thresholdPercent
}

// Description returns a human-readable summary of the discrepancy,
// e.g. "5 units under-delivered (5.00%)".
func (d QuantityDiscrepancy) Description() string {
	if !d.HasDiscrepancy() {
		return "delivered in full"
	}
	direction := "under-delivered"
	if d.IsOverDelivery() {
		direction = "over-delivered"
	}
	units := int(math.Abs(float64(d.Discrepancy())))
	return fmt.Sprintf("%d units %s (%.2f%%)", units, direction, math.Abs(d.Percentage()))
}

// Equals reports structural equality on the two input quantities
func (d QuantityDiscrepancy) Equals(other QuantityDiscrepancy) bool {
	return d.ordered == other.ordered && d.delivered == other.delivered
}
