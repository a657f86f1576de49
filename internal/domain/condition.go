package domain

import "fmt"

// Condition labels
const (
	conditionGood     = "GOOD"
	conditionDamaged  = "DAMAGED"
	conditionPartial  = "PARTIAL"
	conditionRejected = "REJECTED"
)

// ItemCondition is the condition of a delivered line item. GOOD is the
// only condition without issues.
type ItemCondition struct {
	value string
}

// NewItemCondition creates a condition from its string label
func NewItemCondition(value string) (ItemCondition, error) {
	switch value {
	case conditionGood, conditionDamaged, conditionPartial, conditionRejected:
		return ItemCondition{value: value}, nil
	default:
		return ItemCondition{}, NewValidationError("condition",
			fmt.Sprintf("unknown item condition %q", value))
	}
}

// ConditionGood returns the GOOD condition
func ConditionGood() ItemCondition { return ItemCondition{value: conditionGood} }

// ConditionDamaged returns the DAMAGED condition
func ConditionDamaged() ItemCondition { return ItemCondition{value: conditionDamaged} }

// ConditionPartial returns the PARTIAL condition
func ConditionPartial() ItemCondition { return ItemCondition{value: conditionPartial} }

// ConditionRejected returns the REJECTED condition
func ConditionRejected() ItemCondition { return ItemCondition{value: conditionRejected} }

// String returns the condition label
func (c ItemCondition) String() string { return c.value }

// HasIssues reports whether the condition flags a problem with the item
func (c ItemCondition) HasIssues() bool { return c.value != conditionGood }

// IsRejected reports whether the item was rejected on receipt
func (c ItemCondition) IsRejected() bool { return c.value == conditionRejected }

// Equals reports structural equality
func (c ItemCondition) Equals(other ItemCondition) bool { return c.value == other.value }
