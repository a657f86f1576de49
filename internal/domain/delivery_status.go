package domain

import "fmt"

// Delivery note status labels
const (
	statusDraft     = "DRAFT"
	statusConfirmed = "CONFIRMED"
)

// deliveryNoteTransitions maps each status to the statuses reachable
// from it. A terminal status maps to an empty set.
var deliveryNoteTransitions = map[string][]string{
	statusDraft:     {statusConfirmed},
	statusConfirmed: {},
}

// DeliveryNoteStatus is the lifecycle state of a delivery note. The
// only legal transition is DRAFT to CONFIRMED; CONFIRMED is terminal.
type DeliveryNoteStatus struct {
	value string
}

// NewDeliveryNoteStatus creates a status from its string label
func NewDeliveryNoteStatus(value string) (DeliveryNoteStatus, error) {
	if _, ok := deliveryNoteTransitions[value]; !ok {
		return DeliveryNoteStatus{}, NewValidationError("status",
			fmt.Sprintf("unknown delivery note status %q", value))
	}
	return DeliveryNoteStatus{value: value}, nil
}

// StatusDraft returns the DRAFT status
func StatusDraft() DeliveryNoteStatus { return DeliveryNoteStatus{value: statusDraft} }

// StatusConfirmed returns the CONFIRMED status
func StatusConfirmed() DeliveryNoteStatus { return DeliveryNoteStatus{value: statusConfirmed} }

// String returns the status label
func (s DeliveryNoteStatus) String() string { return s.value }

// IsDraft reports whether the status is DRAFT
func (s DeliveryNoteStatus) IsDraft() bool { return s.value == statusDraft }

// IsConfirmed reports whether the status is CONFIRMED
func (s DeliveryNoteStatus) IsConfirmed() bool { return s.value == statusConfirmed }

// IsTerminal reports whether no further transition is possible
func (s DeliveryNoteStatus) IsTerminal() bool {
	return len(deliveryNoteTransitions[s.value]) == 0
}

// CanTransitionTo reports whether the transition table allows moving to next
func (s DeliveryNoteStatus) CanTransitionTo(next DeliveryNoteStatus) bool {
	for _, allowed := range deliveryNoteTransitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// TransitionTo returns the next status, or an InvalidStateTransitionError
// when the transition table does not allow the move. The receiver is
// never mutated.
func (s DeliveryNoteStatus) TransitionTo(next DeliveryNoteStatus) (DeliveryNoteStatus, error) {
	if !s.CanTransitionTo(next) {
		return DeliveryNoteStatus{}, NewInvalidStateTransitionError(s.value, next.value)
	}
	return next, nil
}

// Equals reports structural equality
func (s DeliveryNoteStatus) Equals(other DeliveryNoteStatus) bool { return s.value == other.value }
